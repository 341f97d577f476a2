package middleware

import (
	"net/http"

	"github.com/certolo/certolo-backend/internal/app/service"
	"github.com/certolo/certolo-backend/internal/errors"
	"github.com/gin-gonic/gin"
)

// CSRFHeader carries the anti-forgery token on mutating requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware checks the anti-forgery token on state-changing methods.
// The token is bound to the JWT session in Redis; GET/HEAD/OPTIONS pass
// through untouched.
func CSRFMiddleware(sessionService service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		log := GetLoggerFromContext(c)

		p, ok := GetPrincipal(c)
		if !ok {
			// Authentication runs first; an unauthenticated mutating
			// request never reaches this point on protected routes.
			errors.Unauthorized(c, "Login required")
			c.Abort()
			return
		}

		token := c.GetHeader(CSRFHeader)
		if err := sessionService.VerifyAntiForgeryToken(c.Request.Context(), p.SessionID, token); err != nil {
			log.Warn("Anti-forgery token check failed", map[string]interface{}{
				"user_id": p.UserID,
				"path":    c.Request.URL.Path,
				"method":  c.Request.Method,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthCSRFInvalid, "Invalid or missing anti-forgery token")
			c.Abort()
			return
		}

		c.Next()
	}
}
