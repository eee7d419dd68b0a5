package routes

import (
	"codegalaxy/controllers"
	"codegalaxy/middlewares"

	"github.com/gin-gonic/gin"
)

func registerAdminRoutes(r gin.IRouter, authz *middlewares.Authorizer, c *controllers.AdminController) {
	read := func(resource string) gin.HandlerFunc { return authz.Require(resource, middlewares.ActionRead) }
	write := func(resource string) gin.HandlerFunc { return authz.Require(resource, middlewares.ActionWrite) }

	r.GET("/stats", read(middlewares.ResourceStats), c.Stats)
	r.GET("/analytics", read(middlewares.ResourceAnalytics), c.Analytics)

	r.GET("/users", read(middlewares.ResourceUsers), c.Users)
	r.PUT("/users/:id/status", write(middlewares.ResourceUsers), c.SetUserStatus)
	r.DELETE("/users/:id", write(middlewares.ResourceUsers), c.DeleteUser)

	r.GET("/reviews", read(middlewares.ResourceReviews), c.Reviews)
	r.POST("/reviews/:id/moderate", write(middlewares.ResourceReviews), c.ModerateReview)

	r.GET("/models", read(middlewares.ResourceModels), c.Models)
	r.POST("/models/:name/test", write(middlewares.ResourceModels), c.TestModel)

	r.GET("/logs", read(middlewares.ResourceLogs), c.Logs)

	r.POST("/digest", write(middlewares.ResourceEmail), c.SendDigest)
	r.POST("/test-email", write(middlewares.ResourceEmail), c.SendTestEmail)
}
