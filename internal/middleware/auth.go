package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/pkg/auth"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SessionCookie is the cookie holding the session JWT
const SessionCookie = "token"

// DeviceKeyHeader carries the shared key of gate cameras
const DeviceKeyHeader = "X-Device-Key"

// Context keys set by Authenticate
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
	ContextToken  = "token"
)

// CookieOptions controls the session cookie attributes
type CookieOptions struct {
	Secure bool
	Domain string
}

// SetSessionCookie stores token in an HttpOnly cookie for maxAge seconds
func SetSessionCookie(c *gin.Context, opts CookieOptions, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", opts.Domain, opts.Secure, true)
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	SetSessionCookie(c, opts, "", -1)
}

// Authenticate resolves the session from the cookie or a Bearer header.
// Requests without a valid session pass through anonymously; a stale
// cookie is cleared.
func Authenticate(jwtManager *auth.JWTManager, blacklist auth.Blacklist, opts CookieOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, fromCookie := tokenFromRequest(c)
		if tokenString == "" {
			c.Next()
			return
		}

		revoked, err := blacklist.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			logger.Error("failed to check token blacklist", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Auth server error"})
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if revoked || err != nil {
			if fromCookie {
				ClearSessionCookie(c, opts)
			}
			c.Next()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, model.Role(claims.Role))
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole allows only the given roles through
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Authentication required"})
			return
		}
		if !lo.Contains(roles, Role(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{Error: "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// RequireDeviceKey checks the camera key header. An empty key disables the check.
func RequireDeviceKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(DeviceKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.DeviceUploadResponse{
				Status: "error",
				Detail: "Invalid device key",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Role returns the authenticated user's role, or "" when anonymous
func Role(c *gin.Context) model.Role {
	role, _ := c.Get(ContextRole)
	r, _ := role.(model.Role)
	return r
}

// Token returns the raw session token of the request
func Token(c *gin.Context) string {
	return c.GetString(ContextToken)
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1]), false
	}
	return "", false
}
