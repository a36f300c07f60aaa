package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"nexusai-api/internal/logging"
)

// AnonymousUser is the identity assigned when no credentials are presented.
// Anonymous callers share one free-tier quota bucket.
const AnonymousUser = "anonymous"

// Identity resolves the caller without rejecting anyone: every endpoint is
// reachable, quotas just differ. Resolution order is a verified JWT bearer
// token, then the gateway-set X-User-ID/X-User-Tier headers, then anonymous.
// With no JWT secret configured, bearer tokens are ignored entirely rather
// than accepted unverified.
func Identity(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := AnonymousUser
		tier := "free"

		if auth := c.GetHeader("Authorization"); auth != "" && jwtSecret != "" {
			if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if id, t, err := parseToken(token, jwtSecret); err == nil {
					userID, tier = id, t
				} else {
					logging.S().Debugw("rejected bearer token", "error", err)
				}
			}
		}

		if userID == AnonymousUser {
			if id := c.GetHeader("X-User-ID"); id != "" {
				userID = id
			}
			if t := c.GetHeader("X-User-Tier"); t != "" {
				tier = t
			}
		}

		c.Set("user_id", userID)
		c.Set("user_tier", tier)
		c.Next()
	}
}

type identityClaims struct {
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

func parseToken(tokenString, secret string) (userID, tier string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &identityClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(*identityClaims)
	if !ok || claims.Subject == "" {
		return "", "", fmt.Errorf("token missing subject")
	}

	tier = claims.Tier
	if tier == "" {
		tier = "free"
	}
	return claims.Subject, tier, nil
}
