package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"codegalaxy/db"
	"codegalaxy/middlewares"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// respondError maps service and store errors onto HTTP responses.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verr *services.ValidationError
	var rerr *services.RateLimitError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Error(), "errors": verr.Errors}
		if verr.PasswordStrength != nil {
			body["passwordStrength"] = *verr.PasswordStrength
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &rerr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limit exceeded. Please try again later.",
			"resetAt": rerr.Result.ResetAt,
		})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, db.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Review has already been moderated"})
	case errors.Is(err, db.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{"error": "You already marked this review as helpful"})
	case errors.Is(err, db.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Already completed"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEmailNotVerified), errors.Is(err, services.ErrAccountSuspended):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown model"})
	case errors.Is(err, services.ErrChallengeUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
	}
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// currentActor aborts with 401 when the request carries no session.
func currentActor(c *gin.Context) (services.Actor, bool) {
	session, ok := middlewares.CurrentSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return services.Actor{}, false
	}
	return services.Actor{
		ID:     session.UserID,
		Name:   session.Name,
		Email:  session.Email,
		Client: clientInfo(c),
	}, true
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": err.Error()})
		return false
	}
	return true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return n
}

// listQuery accepts both repeated keys and comma separated values.
func listQuery(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
