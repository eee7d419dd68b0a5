package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const sessionKey = "session"

var (
	ErrMissingToken     = errors.New("missing authorization token")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrSessionSuspended = errors.New("account suspended")
)

// Session is the authenticated caller of one request
type Session struct {
	UserID primitive.ObjectID
	Name   string
	Email  string
	Role   string
}

// SessionFromToken validates a JWT and checks the account is still usable.
func SessionFromToken(ctx context.Context, store db.Store, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrMissingToken
	}
	claims, err := utils.ParseJWTToken(token)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return Session{}, ErrInvalidToken
	}

	user, err := store.GetUserByID(ctx, id)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	switch user.Status {
	case models.StatusSuspended:
		return Session{}, ErrSessionSuspended
	case models.StatusDeleted:
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

// AuthMiddleware verifies the bearer token and stores the Session in the
// gin context.
func AuthMiddleware(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization token"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid Authorization token format"})
			return
		}

		session, err := SessionFromToken(c.Request.Context(), store, parts[1])
		switch {
		case errors.Is(err, ErrSessionSuspended):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account suspended"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// CurrentSession returns the Session set by AuthMiddleware.
func CurrentSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	session, ok := v.(Session)
	return session, ok
}
