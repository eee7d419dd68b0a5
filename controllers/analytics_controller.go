package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (ac *AdminController) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, ac.admin.PlatformStats(c.Request.Context()))
}

// Analytics covers the last ?days= days, 30 by default.
func (ac *AdminController) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, ac.admin.Analytics(c.Request.Context(), intQuery(c, "days", 30)))
}

// Logs supports ?type= and ?limit=.
func (ac *AdminController) Logs(c *gin.Context) {
	logs, err := ac.admin.Logs(c.Request.Context(), c.Query("type"), intQuery(c, "limit", 100))
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
