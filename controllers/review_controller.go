package controllers

import (
	"net/http"

	"codegalaxy/internal/logger"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommunityController handles reviews and support requests.
type CommunityController struct {
	reviews *services.ReviewService
	support *services.SupportService
	log     *zap.Logger
}

func NewCommunityController(reviews *services.ReviewService, support *services.SupportService, log *zap.Logger) *CommunityController {
	return &CommunityController{reviews: reviews, support: support, log: logger.OrNop(log)}
}

func (cc *CommunityController) SubmitReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.ReviewInput
	if !bindJSON(c, &request) {
		return
	}
	review, err := cc.reviews.Submit(c.Request.Context(), actor, request)
	if err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thank you! Your feedback is awaiting review.", "review": review})
}

// Reviews returns the approved community reviews and the caller's own.
func (cc *CommunityController) Reviews(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"community": cc.reviews.Community(c.Request.Context(), intQuery(c, "limit", 20)),
		"mine":      cc.reviews.Mine(c.Request.Context(), actor.ID),
	})
}

func (cc *CommunityController) Helpful(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := cc.reviews.VoteHelpful(c.Request.Context(), id, actor.ID); err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Thanks for your vote"})
}

func (cc *CommunityController) FAQs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"faqs": cc.support.FAQs()})
}

func (cc *CommunityController) SubmitSupport(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var request services.SupportRequest
	if !bindJSON(c, &request) {
		return
	}
	if err := cc.support.Submit(c.Request.Context(), actor, request); err != nil {
		respondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Support request sent. We will get back to you soon."})
}
