package routes

import (
	"codegalaxy/controllers"

	"github.com/gin-gonic/gin"
)

func registerAuthRoutes(r gin.IRouter, c *controllers.AuthController, throttle gin.HandlerFunc) {
	auth := r.Group("/auth", throttle)
	{
		auth.POST("/signup", c.SignUp)
		auth.POST("/verify", c.VerifyEmail)
		auth.POST("/resend", c.ResendCode)
		auth.POST("/login", c.Login)
		auth.POST("/login/otp", c.LoginWithCode)
		auth.POST("/forgot", c.ForgotPassword)
		auth.POST("/reset", c.ResetPassword)
	}
	r.POST("/admin/login", throttle, c.AdminLogin)
}
