package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/models"
)

const identityContextKey = "identity"

// Identity extracts the externally-verified subject forwarded by the
// front-end proxy. X-External-Id is required; profile fields are
// optional and used only to backfill lazily-created users. Websocket
// handshakes may carry the same values as query parameters, where
// browsers cannot set headers.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := models.Identity{
			ExternalID: headerOrQuery(c, "X-External-Id", "external_id"),
			Email:      headerOrQuery(c, "X-User-Email", "email"),
			Name:       headerOrQuery(c, "X-User-Name", "name"),
		}
		if ident.ExternalID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		c.Set(identityContextKey, ident)
		c.Next()
	}
}

// IdentityFromContext returns the identity set by the middleware.
func IdentityFromContext(c *gin.Context) (models.Identity, bool) {
	val, ok := c.Get(identityContextKey)
	if !ok {
		return models.Identity{}, false
	}
	ident, ok := val.(models.Identity)
	return ident, ok
}

// SetIdentity stores an identity on the context. Used by tests in
// place of the real middleware.
func SetIdentity(c *gin.Context, ident models.Identity) {
	c.Set(identityContextKey, ident)
}

func headerOrQuery(c *gin.Context, header, query string) string {
	if val := c.GetHeader(header); val != "" {
		return val
	}
	return c.Query(query)
}
