package routes

import (
	"codegalaxy/controllers"

	"github.com/gin-gonic/gin"
)

func registerCodeRoutes(r gin.IRouter, c *controllers.CodeController) {
	r.GET("/home", c.Home)
	r.GET("/models", c.Models)
	r.GET("/models/:name", c.Model)

	r.POST("/generate", c.Generate)
	r.POST("/explain", c.Explain)
	r.POST("/improve", c.Improve)
	r.POST("/detect-errors", c.DetectErrors)
	r.POST("/generate/batch", c.BatchGenerate)

	r.POST("/codes", c.Save)
	r.GET("/codes", c.History)
	r.GET("/codes/export", c.Export)
	r.DELETE("/codes/:id", c.Delete)
}
