package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller resolved by AuthRequired. Wizard sessions,
// notifications and lead comments are all scoped to it.
type Identity interface {
	UserID() uuid.UUID
	IsAuthenticated() bool
}

type userIdentity struct {
	userID uuid.UUID
}

func (i userIdentity) UserID() uuid.UUID { return i.userID }

func (i userIdentity) IsAuthenticated() bool { return i.userID != uuid.Nil }

// GetIdentity reads the user set by AuthRequired. Requests that did not pass
// through it get an anonymous identity.
func GetIdentity(c *gin.Context) Identity {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return userIdentity{}
	}
	userID, _ := value.(uuid.UUID)
	return userIdentity{userID: userID}
}

// MustGetIdentity aborts with 401 and returns nil for anonymous callers.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
