package controllers

import (
	"net/http"

	"codegalaxy/internal/logger"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileController struct {
	profiles *services.ProfileService
	log      *zap.Logger
}

func NewProfileController(profiles *services.ProfileService, log *zap.Logger) *ProfileController {
	return &ProfileController{profiles: profiles, log: logger.OrNop(log)}
}

func (pc *ProfileController) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	profile, err := pc.profiles.Get(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (pc *ProfileController) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.ProfileUpdate
	if !bindJSON(c, &request) {
		return
	}
	user, err := pc.profiles.Update(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

func (pc *ProfileController) UpdateSettings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.SettingsUpdate
	if !bindJSON(c, &request) {
		return
	}
	user, err := pc.profiles.UpdateSettings(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings saved", "user": user})
}

func (pc *ProfileController) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.PasswordChange
	if !bindJSON(c, &request) {
		return
	}
	if err := pc.profiles.ChangePassword(c.Request.Context(), actor, request); err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

// Delete deactivates the caller's own account.
func (pc *ProfileController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := pc.profiles.Delete(c.Request.Context(), actor); err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
