package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/config"
	"github.com/kidpech/users_api/internal/domain/user"
)

// Session resolution failures.
var (
	ErrNoSession      = errors.New("no session token")
	ErrInvalidSession = errors.New("invalid session")
)

// Claims carries the session token id (jti) and its owner (sub).
type Claims struct {
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore looks sessions up by their opaque token.
type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*user.Session, error)
}

// SessionManager verifies signed session tokens against the session store.
type SessionManager struct {
	cfg    config.AuthConfig
	store  SessionStore
	redis  *redis.Client
	memory sync.Map
	logger *zap.Logger

	sweepMu   sync.Mutex
	lastSweep time.Time
	now    func() time.Time
}

type cachedPrincipal struct {
	Principal Principal
	Until     time.Time
}

// NewSessionManager builds a SessionManager. redisClient may be nil, in which
// case positive lookups are cached in process.
func NewSessionManager(cfg config.AuthConfig, store SessionStore, redisClient *redis.Client, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		cfg:    cfg,
		store:  store,
		redis:  redisClient,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IssueSessionToken signs a token for an existing session row.
func (m *SessionManager) IssueSessionToken(sessionToken, userID string, expiresAt time.Time) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   userID,
			ID:        sessionToken,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tkn.SignedString([]byte(m.cfg.Secret))
}

// NewSessionToken returns a fresh opaque session token and its expiry.
func (m *SessionManager) NewSessionToken() (string, time.Time) {
	return strings.ReplaceAll(uuid.NewString(), "-", ""), m.now().Add(m.cfg.SessionTTL)
}

// Resolve authenticates the request from its bearer token or session cookie.
func (m *SessionManager) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	raw := m.extract(r)
	if raw == "" {
		return nil, ErrNoSession
	}
	claims, err := m.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if p, ok := m.cached(ctx, claims.ID); ok {
		if p.UserID != claims.Subject {
			return nil, ErrInvalidSession
		}
		return &p, nil
	}

	sess, err := m.store.GetByToken(ctx, claims.ID)
	if errors.Is(err, user.ErrSessionNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	now := m.now()
	if sess.UserID != claims.Subject || !sess.ExpiresAt.After(now) {
		return nil, ErrInvalidSession
	}
	p := Principal{UserID: sess.UserID, SessionID: sess.ID, ExpiresAt: sess.ExpiresAt}
	m.remember(ctx, claims.ID, p, now)
	return &p, nil
}

func (m *SessionManager) extract(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(m.cfg.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (m *SessionManager) parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (m *SessionManager) cached(ctx context.Context, id string) (Principal, bool) {
	if m.cfg.SessionCacheTTL <= 0 {
		return Principal{}, false
	}
	key := m.cacheKey(id)
	if m.redis != nil {
		val, err := m.redis.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				m.logger.Warn("session cache read failed", zap.Error(err))
			}
			return Principal{}, false
		}
		var p Principal
		if err := json.Unmarshal(val, &p); err != nil {
			return Principal{}, false
		}
		return p, p.ExpiresAt.After(m.now())
	}
	val, ok := m.memory.Load(key)
	if !ok {
		return Principal{}, false
	}
	entry := val.(cachedPrincipal)
	now := m.now()
	if !entry.Until.After(now) || !entry.Principal.ExpiresAt.After(now) {
		m.memory.Delete(key)
		return Principal{}, false
	}
	return entry.Principal, true
}

func (m *SessionManager) remember(ctx context.Context, id string, p Principal, now time.Time) {
	ttl := m.cfg.SessionCacheTTL
	if ttl <= 0 {
		return
	}
	if remaining := p.ExpiresAt.Sub(now); remaining < ttl {
		ttl = remaining
	}
	key := m.cacheKey(id)
	if m.redis != nil {
		payload, err := json.Marshal(p)
		if err != nil {
			return
		}
		if err := m.redis.Set(ctx, key, payload, ttl).Err(); err != nil {
			m.logger.Warn("session cache write failed", zap.Error(err))
		}
		return
	}
	m.sweep(now)
	m.memory.Store(key, cachedPrincipal{Principal: p, Until: now.Add(ttl)})
}

// sweep drops expired in-process entries at most once per cache TTL, so
// tokens that are never presented again do not accumulate.
func (m *SessionManager) sweep(now time.Time) {
	m.sweepMu.Lock()
	if now.Sub(m.lastSweep) < m.cfg.SessionCacheTTL {
		m.sweepMu.Unlock()
		return
	}
	m.lastSweep = now
	m.sweepMu.Unlock()

	m.memory.Range(func(key, val any) bool {
		if entry := val.(cachedPrincipal); !entry.Until.After(now) {
			m.memory.Delete(key)
		}
		return true
	})
}

func (m *SessionManager) cacheKey(id string) string {
	return "session:" + id
}
