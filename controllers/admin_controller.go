package controllers

import (
	"net/http"

	"codegalaxy/db"
	"codegalaxy/internal/logger"
	"codegalaxy/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TestEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// AdminController backs the admin dashboard. Routes are guarded by casbin.
type AdminController struct {
	admin   *services.AdminService
	reviews *services.ReviewService
	log     *zap.Logger
}

func NewAdminController(admin *services.AdminService, reviews *services.ReviewService, log *zap.Logger) *AdminController {
	return &AdminController{admin: admin, reviews: reviews, log: logger.OrNop(log)}
}

// Users supports ?role=, ?status=, ?search=, ?page= and ?limit=.
func (ac *AdminController) Users(c *gin.Context) {
	filter := db.UserFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   intQuery(c, "page", 1),
		Limit:  intQuery(c, "limit", 20),
	}
	users, total, err := ac.admin.Users(c.Request.Context(), filter)
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total, "page": filter.Page, "limit": filter.Limit})
}

func (ac *AdminController) SetUserStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request UserStatusRequest
	if !bindJSON(c, &request) {
		return
	}
	if err := ac.admin.SetUserStatus(c.Request.Context(), actor.ID, id, request.Status); err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User status updated"})
}

func (ac *AdminController) DeleteUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.admin.DeleteUser(c.Request.Context(), actor.ID, id); err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User and related data deleted"})
}

func (ac *AdminController) Reviews(c *gin.Context) {
	reviews, err := ac.reviews.List(c.Request.Context(), c.Query("status"), intQuery(c, "limit", 100))
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (ac *AdminController) ModerateReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request services.ModerationInput
	if !bindJSON(c, &request) {
		return
	}
	review, err := ac.reviews.Moderate(c.Request.Context(), actor.ID, id, request)
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (ac *AdminController) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": ac.admin.Models(c.Request.Context())})
}

func (ac *AdminController) TestModel(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	result, err := ac.admin.TestModel(c.Request.Context(), actor.ID, c.Param("name"))
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ac *AdminController) SendDigest(c *gin.Context) {
	report, err := ac.admin.SendWeeklyDigests(c.Request.Context())
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ac *AdminController) SendTestEmail(c *gin.Context) {
	var request TestEmailRequest
	if !bindJSON(c, &request) {
		return
	}
	if err := ac.admin.SendTestEmail(c.Request.Context(), request.Email); err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test email sent to " + request.Email})
}
