package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailforge/internal/domain/users"
)

const keyCurrentUser = "current_user"

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (users.User, error)
}

// LoadCurrentUser must run after AuthMiddleware. It loads the user row once
// per request so later guards and handlers see fresh plan and beta state.
func LoadCurrentUser(finder UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := finder.FindByID(c.Request.Context(), c.GetUint(KeyUserID))
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "load current user", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		c.Set(keyCurrentUser, user)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (users.User, bool) {
	v, ok := c.Get(keyCurrentUser)
	if !ok {
		return users.User{}, false
	}
	u, ok := v.(users.User)
	return u, ok
}

// SetCurrentUser is used by tests and by handlers that refresh the row.
func SetCurrentUser(c *gin.Context, u users.User) {
	c.Set(keyCurrentUser, u)
}
