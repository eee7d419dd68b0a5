package controllers

import (
	"net/http"

	"codegalaxy/services"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	leaderboard *services.LeaderboardService
	search      *services.SearchService
}

func NewLeaderboardController(leaderboard *services.LeaderboardService, search *services.SearchService) *LeaderboardController {
	return &LeaderboardController{leaderboard: leaderboard, search: search}
}

// GetLeaderboard is recomputed on every request.
func (lc *LeaderboardController) GetLeaderboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, lc.leaderboard.Get(c.Request.Context(), actor.ID))
}

func (lc *LeaderboardController) Search(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, lc.search.Search(c.Request.Context(), actor.ID, c.Query("q")))
}
