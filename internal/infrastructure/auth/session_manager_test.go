package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/kidpech/users_api/internal/config"
	"github.com/kidpech/users_api/internal/domain/user"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeSessionStore struct {
	sessions map[string]*user.Session
	lookups  int
}

func (f *fakeSessionStore) GetByToken(ctx context.Context, token string) (*user.Session, error) {
	f.lookups++
	s, ok := f.sessions[token]
	if !ok {
		return nil, user.ErrSessionNotFound
	}
	return s, nil
}

func newTestManager(store SessionStore, cacheTTL time.Duration) *SessionManager {
	return NewSessionManager(config.AuthConfig{
		Secret:          testSecret,
		CookieName:      "better-auth.session_token",
		Issuer:          "users-api",
		SessionTTL:      time.Hour,
		SessionCacheTTL: cacheTTL,
	}, store, nil, nil)
}

func requestWithBearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestResolveBearerToken(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	store := &fakeSessionStore{sessions: map[string]*user.Session{
		"tok1": {ID: "s1", Token: "tok1", UserID: "u1", ExpiresAt: expires},
	}}
	m := newTestManager(store, 0)
	signed, err := m.IssueSessionToken("tok1", "u1", expires)
	require.NoError(t, err)

	p, err := m.Resolve(context.Background(), requestWithBearer(signed))

	require.NoError(t, err)
	require.Equal(t, "u1", p.UserID)
	require.Equal(t, "s1", p.SessionID)
}

func TestResolveCookie(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	store := &fakeSessionStore{sessions: map[string]*user.Session{
		"tok1": {ID: "s1", Token: "tok1", UserID: "u1", ExpiresAt: expires},
	}}
	m := newTestManager(store, 0)
	signed, err := m.IssueSessionToken("tok1", "u1", expires)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.AddCookie(&http.Cookie{Name: "better-auth.session_token", Value: signed})

	p, err := m.Resolve(context.Background(), r)

	require.NoError(t, err)
	require.Equal(t, "u1", p.UserID)
}

func TestResolveWithoutToken(t *testing.T) {
	m := newTestManager(&fakeSessionStore{}, 0)

	_, err := m.Resolve(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.ErrorIs(t, err, ErrNoSession)
}

func TestResolveRejectsForeignSignature(t *testing.T) {
	m := newTestManager(&fakeSessionStore{}, 0)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "users-api",
		Subject:   "u1",
		ID:        "tok1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	signed, err := forged.SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), requestWithBearer(signed))

	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestResolveRejectsExpiredSessionRow(t *testing.T) {
	store := &fakeSessionStore{sessions: map[string]*user.Session{
		"tok1": {ID: "s1", Token: "tok1", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	m := newTestManager(store, 0)
	signed, err := m.IssueSessionToken("tok1", "u1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), requestWithBearer(signed))

	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestResolveRejectsSubjectMismatch(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	store := &fakeSessionStore{sessions: map[string]*user.Session{
		"tok1": {ID: "s1", Token: "tok1", UserID: "u1", ExpiresAt: expires},
	}}
	m := newTestManager(store, 0)
	signed, err := m.IssueSessionToken("tok1", "u2", expires)
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), requestWithBearer(signed))

	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestResolveCachesPositiveLookups(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	store := &fakeSessionStore{sessions: map[string]*user.Session{
		"tok1": {ID: "s1", Token: "tok1", UserID: "u1", ExpiresAt: expires},
	}}
	m := newTestManager(store, time.Minute)
	signed, err := m.IssueSessionToken("tok1", "u1", expires)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := m.Resolve(context.Background(), requestWithBearer(signed))
		require.NoError(t, err)
	}

	require.Equal(t, 1, store.lookups)
}

func TestMemoryCacheSweepsTokensNeverSeenAgain(t *testing.T) {
	m := newTestManager(&fakeSessionStore{}, time.Minute)
	base := time.Now()
	p := Principal{UserID: "u1", SessionID: "s1", ExpiresAt: base.Add(time.Hour)}
	entries := func() int {
		n := 0
		m.memory.Range(func(_, _ any) bool { n++; return true })
		return n
	}

	m.remember(context.Background(), "a", p, base)
	m.remember(context.Background(), "b", p, base.Add(30*time.Second))
	require.Equal(t, 2, entries())

	m.remember(context.Background(), "c", p, base.Add(2*time.Minute))

	require.Equal(t, 1, entries())
	_, ok := m.memory.Load(m.cacheKey("c"))
	require.True(t, ok)
}
