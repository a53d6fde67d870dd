package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxClaimsKey = "epidash_analyst"

// Middleware guards the mutating dashboard endpoints. It accepts a
// bearer token, verifies signature and expiry, and rejects tokens
// minted before the analyst's last logout or password change. Pass a
// nil repo to skip the revocation check (tests, read-only tooling).
func Middleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, tokens)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		if repo != nil {
			version, verr := repo.GetTokenVersion(c.Request.Context(), claims.UserID)
			if verr != nil || version != claims.TokenVersion {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		c.Set(ctxClaimsKey, claims)
		c.Next()
	}
}

func bearerClaims(c *gin.Context, tokens TokenService) (*Claims, error) {
	scheme, raw, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, errors.New("missing bearer token")
	}

	claims, err := tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token expired")
		}
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// MustGetClaims returns the authenticated analyst's claims, or nil on
// a route the middleware never ran for.
func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
