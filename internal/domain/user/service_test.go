package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/pagination"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	svc := NewService(repo, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func page(p, limit int) pagination.Request {
	return pagination.Request{Page: p, Limit: limit, SortBy: "createdAt", SortOrder: "desc"}
}

func strPtr(s string) *string { return &s }

func TestListSecondPageOfTwentyFive(t *testing.T) {
	repo := newFakeRepo()
	repo.seedMany(25, fixedNow.Add(-time.Hour))
	svc := newTestService(repo)

	res, err := svc.List(context.Background(), page(2, 10))

	require.NoError(t, err)
	require.Len(t, res.Data, 10)
	require.Equal(t, pagination.Info{Total: 25, Page: 2, Limit: 10, TotalPages: 3, HasNext: true, HasPrev: true}, res.Pagination)
	require.Equal(t, "u14", res.Data[0].ID)
}

func TestListPageBeyondEnd(t *testing.T) {
	repo := newFakeRepo()
	repo.seedMany(5, fixedNow.Add(-time.Hour))
	svc := newTestService(repo)

	res, err := svc.List(context.Background(), page(4, 10))

	require.NoError(t, err)
	require.Empty(t, res.Data)
	require.NotNil(t, res.Data)
	require.False(t, res.Pagination.HasNext)
	require.True(t, res.Pagination.HasPrev)
}

func TestListEmptyStore(t *testing.T) {
	svc := newTestService(newFakeRepo())

	res, err := svc.List(context.Background(), page(1, 10))

	require.NoError(t, err)
	require.Equal(t, pagination.Info{Total: 0, Page: 1, Limit: 10}, res.Pagination)
}

func TestListSortsAscendingByEmail(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(
		User{ID: "b", Email: "bob@example.com"},
		User{ID: "a", Email: "alice@example.com"},
	)
	svc := newTestService(repo)

	res, err := svc.List(context.Background(), pagination.Request{Page: 1, Limit: 10, SortBy: "email", SortOrder: "asc"})

	require.NoError(t, err)
	require.Equal(t, "a", res.Data[0].ID)
}

func TestListPropagatesStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errStoreDown
	svc := newTestService(repo)

	_, err := svc.List(context.Background(), page(1, 10))

	require.ErrorIs(t, err, errStoreDown)
	require.Equal(t, apperror.KindInternal, apperror.From(err).Kind)
}

func TestSearchMatchesEmailOrNameCaseInsensitively(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(
		User{ID: "1", Email: "ada@example.com", Name: strPtr("Ada Lovelace")},
		User{ID: "2", Email: "grace@navy.mil", Name: strPtr("Grace Hopper")},
		User{ID: "3", Email: "LOVE@example.com"},
	)
	svc := newTestService(repo)

	res, err := svc.Search(context.Background(), SearchRequest{Q: "  love "}, page(1, 10))

	require.NoError(t, err)
	require.Equal(t, "love", res.Query)
	require.Equal(t, int64(2), res.Pagination.Total)
	ids := []string{res.Data[0].ID, res.Data[1].ID}
	require.ElementsMatch(t, []string{"1", "3"}, ids)
}

func TestSearchBlankTermNeverTouchesStore(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Search(context.Background(), SearchRequest{Q: "   "}, page(1, 10))

	require.True(t, apperror.IsKind(err, apperror.KindBadRequest))
	require.Zero(t, repo.callCount())
}

func TestGetByIDCountsActiveSessionsOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(User{ID: "u1", Email: "u1@example.com"})
	repo.sessions["u1"] = []time.Time{fixedNow.Add(time.Hour), fixedNow.Add(-time.Hour)}
	svc := newTestService(repo)

	detail, err := svc.GetByID(context.Background(), "u1")

	require.NoError(t, err)
	require.Equal(t, int64(1), detail.Count.Sessions)
	require.Nil(t, detail.Count.Accounts)
}

func TestGetByIDMissing(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.GetByID(context.Background(), "nope")

	require.True(t, apperror.IsKind(err, apperror.KindNotFound))
	require.EqualError(t, err, "User not found")
}

func TestGetCurrentIncludesAccounts(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(User{ID: "me", Email: "me@example.com"})
	repo.accounts["me"] = 2
	svc := newTestService(repo)

	detail, err := svc.GetCurrent(context.Background(), "me")

	require.NoError(t, err)
	require.NotNil(t, detail.Count.Accounts)
	require.Equal(t, int64(2), *detail.Count.Accounts)
}

func TestGetCurrentWithoutCaller(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.GetCurrent(context.Background(), "")

	require.True(t, apperror.IsKind(err, apperror.KindBadRequest))
}

func TestUpdateByNonOwnerIsForbidden(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(
		User{ID: "owner", Email: "owner@example.com"},
		User{ID: "other", Email: "other@example.com"},
	)
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), "owner", "other", UpdateUserRequest{Email: strPtr("other@example.com")})

	require.True(t, apperror.IsKind(err, apperror.KindForbidden))
	require.EqualError(t, err, "You can only update your own profile")
}

func TestUpdateMissingTarget(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Update(context.Background(), "ghost", "ghost", UpdateUserRequest{Name: strPtr("Ghost")})

	require.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestUpdateToForeignEmailConflicts(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(
		User{ID: "me", Email: "me@example.com"},
		User{ID: "you", Email: "you@example.com"},
	)
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), "me", "me", UpdateUserRequest{Email: strPtr("you@example.com")})

	require.True(t, apperror.IsKind(err, apperror.KindConflict))
	require.EqualError(t, err, "Email already in use")
}

func TestUpdateKeepingOwnEmailSucceeds(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(User{ID: "me", Email: "me@example.com", Name: strPtr("Old")})
	svc := newTestService(repo)

	updated, err := svc.Update(context.Background(), "me", "me", UpdateUserRequest{
		Email: strPtr("me@example.com"),
		Name:  strPtr("<b>New</b> & Improved"),
	})

	require.NoError(t, err)
	require.Equal(t, "me@example.com", updated.Email)
	require.Equal(t, "New & Improved", *updated.Name)
	require.Equal(t, fixedNow, updated.UpdatedAt)
}

func TestUpdateWithNoFieldsTouchesTimestampOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(User{ID: "me", Email: "me@example.com", Name: strPtr("Same")})
	svc := newTestService(repo)

	updated, err := svc.Update(context.Background(), "me", "me", UpdateUserRequest{})

	require.NoError(t, err)
	require.Equal(t, "Same", *updated.Name)
	require.Equal(t, fixedNow, updated.UpdatedAt)
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(User{ID: "me", Email: "me@example.com"})
	svc := newTestService(repo)

	require.NoError(t, svc.Delete(context.Background(), "me", "me"))

	_, err := svc.GetByID(context.Background(), "me")
	require.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestDeleteByNonOwnerIsForbidden(t *testing.T) {
	repo := newFakeRepo()
	repo.seed(User{ID: "me", Email: "me@example.com"})
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), "me", "intruder")

	require.True(t, apperror.IsKind(err, apperror.KindForbidden))
	require.EqualError(t, err, "You can only delete your own account")
	_, err = repo.GetByID(context.Background(), "me")
	require.NoError(t, err)
}

func TestStatsVerifiedPlusUnverifiedEqualsTotal(t *testing.T) {
	repo := newFakeRepo()
	repo.seedMany(10, fixedNow.Add(-10*24*time.Hour))
	repo.seed(User{ID: "fresh", Email: "fresh@example.com", EmailVerified: true, CreatedAt: fixedNow.Add(-24 * time.Hour)})
	svc := newTestService(repo)

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	require.Equal(t, int64(11), stats.Total)
	require.Equal(t, int64(5), stats.Verified)
	require.Equal(t, stats.Total, stats.Verified+stats.Unverified)
	require.Equal(t, int64(1), stats.RecentlyJoined)
}
