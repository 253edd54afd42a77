package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
	"github.com/Sharath05hk/Minimart/internal/logging"
	"github.com/Sharath05hk/Minimart/internal/security"
)

const claimsKey = "claims"

type TokenParser interface {
	Parse(raw string) (*security.Claims, error)
}

type Authz struct {
	tokens TokenParser
}

func NewAuthz(tokens TokenParser) *Authz {
	return &Authz{tokens: tokens}
}

// Authenticate checks the bearer JWT and stores its claims on the context.
func (a *Authz) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		claims, err := a.tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		c.Set(claimsKey, claims)
		l := logging.From(c).With("user_id", claims.UserID)
		logging.With(c, l)
		c.Request = c.Request.WithContext(logging.WithCtx(c.Request.Context(), l))
		c.Next()
	}
}

// RequireRoles lets the request through when the caller holds any of roles.
// It must run after Authenticate.
func (a *Authz) RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}
		if !domain.HasAnyRole(claims.Roles, roles...) {
			forbidden(c, "insufficient_scope", "missing required role")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) *security.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(*security.Claims); ok {
			return cl
		}
	}
	return nil
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}
