package routes

import (
	"codegalaxy/controllers"

	"github.com/gin-gonic/gin"
)

func registerProfileRoutes(r gin.IRouter, c *controllers.ProfileController) {
	r.GET("/profile", c.Get)
	r.PUT("/profile", c.Update)
	r.PUT("/profile/settings", c.UpdateSettings)
	r.PUT("/profile/password", c.ChangePassword)
	r.DELETE("/profile", c.Delete)
}
