package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/service"
)

const (
	// ContextKeyIdentity is the Gin context key for the resolved identity.
	ContextKeyIdentity = "identity"
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"

	// SessionCookie carries the token for browser clients.
	SessionCookie = "roster_session"
)

// IdentityResolver turns a token into the stored identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*model.Identity, *service.Claims, error)
}

// ResolveIdentity attaches the caller's identity when a valid token is
// presented. It never rejects a request: missing, invalid or revoked tokens
// leave the request anonymous and the services decide what that allows.
func ResolveIdentity(resolver IdentityResolver, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "identity_middleware").Logger()
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		identity, claims, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthenticated) {
				log.Warn().Err(err).Msg("Identity resolution failed")
			}
			c.Next()
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetIdentity returns the resolved identity, or nil for anonymous requests.
func GetIdentity(c *gin.Context) *model.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	identity, ok := val.(*model.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}
