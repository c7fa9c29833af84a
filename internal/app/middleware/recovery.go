package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/response"
)

// Recovery converts a handler panic into the standard 500 envelope. The
// panic is attached to the context so RequestLogger reports it.
func Recovery(verbose bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", recovered)
		}
		appErr := apperror.Internal(err).WithStack(debug.Stack())
		_ = c.Error(appErr)
		response.Error(c, appErr, verbose)
	})
}
