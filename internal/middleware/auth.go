package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ridehail/internal/domain"
)

const actorContextKey = "actor"

// AuthMiddleware verifies the bearer token issued by the external identity
// service and attaches the {id, role} actor to the request context. Token
// issuance, refresh and revocation all live outside this subsystem.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid claims")
			return
		}

		id, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if id == "" || role == "" {
			abortUnauthorized(c, "token missing identity claims")
			return
		}

		switch domain.Role(role) {
		case domain.RoleCustomer, domain.RoleDriver, domain.RoleAdmin:
		default:
			abortUnauthorized(c, "unknown role")
			return
		}

		c.Set(actorContextKey, domain.Actor{ID: id, Role: domain.Role(role)})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}

// ActorFromContext returns the verified actor set by AuthMiddleware.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}
