package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kidpech/users_api/internal/domain/user"
)

const sessionColumns = `s.id, s.token, s.user_id, s.expires_at, s.ip_address, s.user_agent, s.created_at, s.updated_at`

// SessionRepository reads login sessions via sqlx.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repo.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByToken returns the session whose token matches, provided its user
// still exists.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*user.Session, error) {
	var s user.Session
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? LIMIT 1`)
	err := r.db.GetContext(ctx, &s, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a session row.
func (r *SessionRepository) Create(ctx context.Context, s *user.Session) error {
	query := `INSERT INTO sessions (id, token, user_id, expires_at, ip_address, user_agent, created_at, updated_at)
		VALUES (:id, :token, :user_id, :expires_at, :ip_address, :user_agent, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}
