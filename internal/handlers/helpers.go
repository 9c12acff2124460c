package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/models"
	"project-chat-service/internal/repositories"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// resolveUser turns the request identity into an internal user record,
// creating it on first sight. Writes the error response itself when
// resolution fails.
func resolveUser(c *gin.Context, users repositories.UserRepository) (models.User, bool) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return models.User{}, false
	}

	user, err := users.Resolve(c.Request.Context(), ident.ExternalID, ident.Email, ident.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
		return models.User{}, false
	}
	return user, true
}

// requireMember verifies organization membership and writes the error
// response when the check fails or is negative.
func requireMember(c *gin.Context, orgs repositories.OrganizationRepository, orgID, userID string) bool {
	member, err := orgs.IsMember(c.Request.Context(), orgID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this organization"})
		return false
	}
	return true
}
