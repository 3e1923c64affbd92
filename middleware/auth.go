package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cgrente/profile-intake-platform/credentials"
)

// ClientIDKey is the gin context key holding the verified client id.
const ClientIDKey = "clientID"

// AuthMiddleware requires an "Authorization: Bearer <credential>" header
// accepted by store.
func AuthMiddleware(store credentials.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, ok := bearerCredential(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		clientID, err := store.Verify(c.Request.Context(), credential)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(ClientIDKey, clientID)
		c.Next()
	}
}

// ClientID returns the client id set by AuthMiddleware.
func ClientID(c *gin.Context) string {
	return c.GetString(ClientIDKey)
}

func bearerCredential(header string) (string, bool) {
	scheme, credential, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	return credential, credential != ""
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
