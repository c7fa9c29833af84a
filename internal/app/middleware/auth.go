package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kidpech/users_api/internal/infrastructure/auth"
	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/response"
)

// SessionResolver authenticates a request from its headers.
type SessionResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*auth.Principal, error)
}

// RequireSession rejects requests without a valid session with 401 and
// stores the caller's user and session ids on the context otherwise.
func RequireSession(resolver SessionResolver, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := resolver.Resolve(c.Request.Context(), c.Request)
		switch {
		case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrInvalidSession):
			response.Error(c, apperror.Unauthorized("Authentication required"), verbose)
			return
		case err != nil:
			appErr := apperror.Internal(err)
			_ = c.Error(appErr)
			response.Error(c, appErr, verbose)
			return
		}
		c.Set(response.UserIDKey, principal.UserID)
		c.Set(response.SessionIDKey, principal.SessionID)
		c.Next()
	}
}
