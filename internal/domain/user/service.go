package user

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/pagination"
)

// Sentinel errors returned by repositories.
var (
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)

// RecentWindow bounds the "recently joined" statistic.
const RecentWindow = 7 * 24 * time.Hour

// SearchResult is a search window plus the term that produced it.
type SearchResult struct {
	pagination.Result[User]
	Query string
}

// Service encapsulates user orchestration.
type Service struct {
	repo      Repository
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a Service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns one window of all users.
func (s *Service) List(ctx context.Context, page pagination.Request) (pagination.Result[User], error) {
	return s.window(ctx, BuildListQuery(page, ""), page)
}

// Search returns one window of users whose email or name contains the term.
func (s *Service) Search(ctx context.Context, search SearchRequest, page pagination.Request) (SearchResult, error) {
	term := strings.TrimSpace(search.Q)
	if term == "" {
		return SearchResult{}, apperror.BadRequest("Search query must not be empty")
	}
	res, err := s.window(ctx, BuildListQuery(page, term), page)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Result: res, Query: term}, nil
}

// window fetches rows and the total for the same filter concurrently.
func (s *Service) window(ctx context.Context, q ListQuery, page pagination.Request) (pagination.Result[User], error) {
	var (
		users []User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.repo.Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return pagination.Result[User]{}, fmt.Errorf("list users: %w", err)
	}
	return pagination.NewResult(users, total, page), nil
}

// GetByID returns a user with its active session count.
func (s *Service) GetByID(ctx context.Context, id string) (*Detail, error) {
	usr, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.CountSessions(ctx, usr.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	return &Detail{User: *usr, Count: Counts{Sessions: sessions}}, nil
}

// GetCurrent returns the caller's own record with session and account counts.
func (s *Service) GetCurrent(ctx context.Context, callerID string) (*Detail, error) {
	if callerID == "" {
		return nil, apperror.BadRequest("User ID not found in session")
	}
	usr, err := s.find(ctx, callerID)
	if err != nil {
		return nil, err
	}
	var counts Counts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts.Sessions, err = s.repo.CountSessions(gctx, usr.ID, s.now())
		return err
	})
	g.Go(func() error {
		accounts, err := s.repo.CountAccounts(gctx, usr.ID)
		counts.Accounts = &accounts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count relations: %w", err)
	}
	return &Detail{User: *usr, Count: counts}, nil
}

// Update applies a partial change to the caller's own record.
func (s *Service) Update(ctx context.Context, id, callerID string, req UpdateUserRequest) (*User, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.ID != callerID {
		return nil, apperror.Forbidden("You can only update your own profile")
	}

	changes := Changes{UpdatedAt: s.now()}
	if req.Email != nil && *req.Email != existing.Email {
		owner, err := s.repo.GetByEmail(ctx, *req.Email)
		switch {
		case err == nil && owner != nil && owner.ID != existing.ID:
			return nil, apperror.Conflict("Email already in use")
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		changes.Email = req.Email
	}
	if req.Name != nil {
		// Markup is stripped; plain text entities are kept as typed.
		name := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(*req.Name)))
		changes.Name = &name
	}

	updated, err := s.repo.Update(ctx, existing.ID, changes)
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return nil, apperror.Conflict("Email already in use")
	case errors.Is(err, ErrUserNotFound):
		return nil, apperror.NotFound("User not found")
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.Info("user updated", zap.String("user_id", updated.ID))
	return updated, nil
}

// Delete removes the caller's own record together with its sessions and
// accounts.
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if existing.ID != callerID {
		return apperror.Forbidden("You can only delete your own account")
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperror.NotFound("User not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", existing.ID))
	return nil
}

// Stats counts all, verified and recently joined users concurrently.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		stats    Stats
		verified = true
		since    = s.now().Add(-RecentWindow)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.Total, err = s.repo.Count(gctx, Filter{})
		return err
	})
	g.Go(func() error {
		var err error
		stats.Verified, err = s.repo.Count(gctx, Filter{Verified: &verified})
		return err
	})
	g.Go(func() error {
		var err error
		stats.RecentlyJoined, err = s.repo.Count(gctx, Filter{CreatedSince: &since})
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("user stats: %w", err)
	}
	stats.Unverified = stats.Total - stats.Verified
	return stats, nil
}

func (s *Service) find(ctx context.Context, id string) (*User, error) {
	usr, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, ErrUserNotFound), err == nil && usr == nil:
		return nil, apperror.NotFound("User not found")
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}
	return usr, nil
}
