package routes

import (
	"codegalaxy/controllers"

	"github.com/gin-gonic/gin"
)

func registerCommunityRoutes(r gin.IRouter, community *controllers.CommunityController, board *controllers.LeaderboardController, challenge *controllers.ChallengeController) {
	r.POST("/reviews", community.SubmitReview)
	r.GET("/reviews", community.Reviews)
	r.POST("/reviews/:id/helpful", community.Helpful)

	r.GET("/support", community.FAQs)
	r.POST("/support", community.SubmitSupport)

	r.GET("/leaderboard", board.GetLeaderboard)
	r.GET("/search", board.Search)

	r.GET("/challenge/today", challenge.Today)
	r.POST("/challenge/today/complete", challenge.Complete)
	r.GET("/challenge/stats", challenge.Stats)
}
