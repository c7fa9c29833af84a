package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kidpech/users_api/internal/domain/user"
)

// UserRepository implements user.Repository using gorm. Listing and counting
// go to the read handle, everything else to the primary.
type UserRepository struct {
	write *gorm.DB
	read  *gorm.DB
}

// NewUserRepository constructs the repo. read may be nil.
func NewUserRepository(write, read *gorm.DB) *UserRepository {
	if read == nil {
		read = write
	}
	return &UserRepository{write: write, read: read}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func applyFilter(q *gorm.DB, f user.Filter) *gorm.DB {
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		q = q.Where("(LOWER(email) LIKE ? OR LOWER(name) LIKE ?)", like, like)
	}
	if f.Verified != nil {
		q = q.Where("email_verified = ?", *f.Verified)
	}
	if f.CreatedSince != nil {
		q = q.Where("created_at >= ?", *f.CreatedSince)
	}
	return q
}

func (r *UserRepository) findQuery(ctx context.Context, q user.ListQuery) *gorm.DB {
	return applyFilter(r.read.WithContext(ctx).Model(&user.User{}), q.Filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortColumn}, Desc: q.Descending}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(q.Offset).
		Limit(q.Limit)
}

func (r *UserRepository) Find(ctx context.Context, q user.ListQuery) ([]user.User, error) {
	var users []user.User
	if err := r.findQuery(ctx, q).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, f user.Filter) (int64, error) {
	var total int64
	err := applyFilter(r.read.WithContext(ctx).Model(&user.User{}), f).Count(&total).Error
	return total, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.write.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.write.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, changes user.Changes) (*user.User, error) {
	updates := map[string]any{"updated_at": changes.UpdatedAt}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Email != nil {
		updates["email"] = *changes.Email
	}
	res := r.write.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, user.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user with its sessions and accounts in one transaction,
// so it also holds on schemas created without cascading foreign keys.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&user.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&user.Account{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&user.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return user.ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) CountSessions(ctx context.Context, userID string, activeAt time.Time) (int64, error) {
	var n int64
	err := r.read.WithContext(ctx).Model(&user.Session{}).
		Where("user_id = ? AND expires_at > ?", userID, activeAt).
		Count(&n).Error
	return n, err
}

func (r *UserRepository) CountAccounts(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.read.WithContext(ctx).Model(&user.Account{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Seed inserts users, accounts and sessions in one transaction.
func (r *UserRepository) Seed(ctx context.Context, users []user.User, accounts []user.Account, sessions []user.Session) error {
	return r.write.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(users) > 0 {
			if err := tx.Create(&users).Error; err != nil {
				return err
			}
		}
		if len(accounts) > 0 {
			if err := tx.Create(&accounts).Error; err != nil {
				return err
			}
		}
		if len(sessions) > 0 {
			if err := tx.Create(&sessions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "unique")
}
