package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*User
	sessions map[string][]time.Time
	accounts map[string]int64
	calls    int
	failWith error
}

func newFakeRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[string]*User),
		sessions: make(map[string][]time.Time),
		accounts: make(map[string]int64),
	}
}

func (f *fakeUserRepo) seed(users ...User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
	}
}

func (f *fakeUserRepo) seedMany(n int, base time.Time) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("User %02d", i)
		f.seed(User{
			ID:            fmt.Sprintf("u%02d", i),
			Email:         fmt.Sprintf("user%02d@example.com", i),
			Name:          &name,
			EmailVerified: i%3 == 0,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func (f *fakeUserRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeUserRepo) enter() error {
	f.calls++
	return f.failWith
}

func (f *fakeUserRepo) matches(u *User, filter Filter) bool {
	if filter.Search != "" {
		term := strings.ToLower(filter.Search)
		name := ""
		if u.Name != nil {
			name = strings.ToLower(*u.Name)
		}
		if !strings.Contains(strings.ToLower(u.Email), term) && !strings.Contains(name, term) {
			return false
		}
	}
	if filter.Verified != nil && u.EmailVerified != *filter.Verified {
		return false
	}
	if filter.CreatedSince != nil && u.CreatedAt.Before(*filter.CreatedSince) {
		return false
	}
	return true
}

func (f *fakeUserRepo) Find(ctx context.Context, q ListQuery) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	var out []User
	for _, u := range f.users {
		if f.matches(u, q.Filter) {
			out = append(out, *u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		less := lessBy(q.SortColumn, out[i], out[j])
		if q.Descending {
			return lessBy(q.SortColumn, out[j], out[i])
		}
		return less
	})
	if q.Offset >= len(out) {
		return []User{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[q.Offset:end], nil
}

func lessBy(column string, a, b User) bool {
	switch column {
	case "email":
		return a.Email < b.Email
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "name":
		var an, bn string
		if a.Name != nil {
			an = *a.Name
		}
		if b.Name != nil {
			bn = *b.Name
		}
		return an < bn
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func (f *fakeUserRepo) Count(ctx context.Context, filter Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range f.users {
		if f.matches(u, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, id string, changes Changes) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if changes.Email != nil {
		for otherID, other := range f.users {
			if otherID != id && other.Email == *changes.Email {
				return nil, ErrDuplicateEmail
			}
		}
		u.Email = *changes.Email
	}
	if changes.Name != nil {
		name := *changes.Name
		u.Name = &name
	}
	u.UpdatedAt = changes.UpdatedAt
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	if _, ok := f.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(f.users, id)
	delete(f.sessions, id)
	delete(f.accounts, id)
	return nil
}

func (f *fakeUserRepo) CountSessions(ctx context.Context, userID string, activeAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return 0, err
	}
	var n int64
	for _, expires := range f.sessions[userID] {
		if expires.After(activeAt) {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserRepo) CountAccounts(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return 0, err
	}
	return f.accounts[userID], nil
}

var errStoreDown = errors.New("store unavailable")
