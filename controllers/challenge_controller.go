package controllers

import (
	"net/http"

	"codegalaxy/internal/logger"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChallengeController struct {
	challenges *services.ChallengeService
	log        *zap.Logger
}

func NewChallengeController(challenges *services.ChallengeService, log *zap.Logger) *ChallengeController {
	return &ChallengeController{challenges: challenges, log: logger.OrNop(log)}
}

func (cc *ChallengeController) Today(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	challenge, err := cc.challenges.Today(c.Request.Context())
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"challenge": challenge,
		"stats":     cc.challenges.Stats(c.Request.Context(), actor.ID),
	})
}

func (cc *ChallengeController) Complete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	stats, err := cc.challenges.Complete(c.Request.Context(), actor)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Challenge completed!", "stats": stats})
}

func (cc *ChallengeController) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cc.challenges.Stats(c.Request.Context(), actor.ID))
}
