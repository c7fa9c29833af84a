package user

import (
	"context"
	"time"
)

// Repository defines the persistence boundary for users.
type Repository interface {
	Find(ctx context.Context, q ListQuery) ([]User, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, changes Changes) (*User, error)
	Delete(ctx context.Context, id string) error
	// CountSessions counts sessions of userID still valid at the given instant.
	CountSessions(ctx context.Context, userID string, activeAt time.Time) (int64, error)
	CountAccounts(ctx context.Context, userID string) (int64, error)
}
