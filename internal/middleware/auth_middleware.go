package middleware

import (
	"net/http"
	"strings"

	"github.com/certolo/certolo-backend/internal/app/model"
	"github.com/certolo/certolo-backend/internal/app/policy"
	"github.com/certolo/certolo-backend/internal/errors"
	"github.com/certolo/certolo-backend/pkg/util"
	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the resolved policy.Principal.
const PrincipalKey = "principal"

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func principalFromClaims(claims *util.Claims) policy.Principal {
	return policy.Principal{
		UserID:        claims.UserID,
		Role:          model.UserRole(claims.Role),
		DisplayName:   claims.Email,
		SessionID:     claims.SessionID,
		Authenticated: true,
	}
}

// Authenticate validates the access token and resolves the principal (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c)
		if !ok {
			log.Warn("Missing or malformed authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "Login required")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Your session has expired")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			}
			c.Abort()
			return
		}

		// Refresh tokens only work against the refresh endpoint.
		if claims.TokenType != "access" {
			log.Warn("Non-access token presented for authentication", map[string]interface{}{
				"path":       c.Request.URL.Path,
				"token_type": claims.TokenType,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			c.Abort()
			return
		}

		c.Set(PrincipalKey, principalFromClaims(claims))

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate resolves the principal if a valid token is present.
// Without one the request continues as the anonymous principal, which the
// policy layer restricts to public data (active standards, certificate
// verification).
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil || claims.TokenType != "access" {
			log.Debug("Token validation failed - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		c.Set(PrincipalKey, principalFromClaims(claims))
		c.Next()
	}
}

// RequireRole checks that the authenticated principal has one of the roles
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		p, ok := GetPrincipal(c)
		if !ok {
			log.Warn("Principal not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzRoleNotFound, "Role information not found")
			c.Abort()
			return
		}

		for _, r := range roles {
			if p.Role == model.UserRole(r) {
				c.Next()
				return
			}
		}

		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        p.UserID,
			"user_role":      p.Role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.Forbidden(c, "You do not have access to this resource")
		c.Abort()
	}
}

// GetPrincipal extracts the resolved principal from the gin context.
func GetPrincipal(c *gin.Context) (policy.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return policy.Principal{}, false
	}
	p, ok := value.(policy.Principal)
	return p, ok
}

// Principal returns the caller's principal, anonymous when unauthenticated.
func Principal(c *gin.Context) policy.Principal {
	if p, ok := GetPrincipal(c); ok {
		return p
	}
	return policy.Anonymous()
}
