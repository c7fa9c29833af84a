package middleware

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

const hstsMaxAge = 15552000

// SecurityHeaders sets browser hardening headers. HSTS is only sent in
// production.
func SecurityHeaders(production bool) gin.HandlerFunc {
	cfg := secure.Config{
		CustomFrameOptionsValue: "SAMEORIGIN",
		ContentTypeNosniff:      true,
		ReferrerPolicy:          "no-referrer",
		ContentSecurityPolicy:   "default-src 'self'; frame-ancestors 'self'; object-src 'none'",
		IENoOpen:                true,
	}
	if production {
		cfg.STSSeconds = hstsMaxAge
		cfg.STSIncludeSubdomains = true
	}
	headers := secure.New(cfg)

	return func(c *gin.Context) {
		headers(c)
		if c.IsAborted() {
			return
		}
		h := c.Writer.Header()
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		c.Next()
	}
}
