package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"github.com/kidpech/users_api/internal/config"
)

// CORS configures cross origin headers. Development allows any origin
// without credentials; other environments use the configured allow list.
func CORS(cfg config.CORSConfig, development bool) gin.HandlerFunc {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	if development {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	handler := cors.New(opts).Handler

	return func(c *gin.Context) {
		passed := false
		handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		// Preflight requests are answered by the cors handler itself.
		if !passed {
			c.Abort()
		}
	}
}
