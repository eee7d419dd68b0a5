package routes

import (
	"time"

	"codegalaxy/controllers"
	"codegalaxy/db"
	"codegalaxy/middlewares"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the controllers mounted by Register.
type Handlers struct {
	Auth        *controllers.AuthController
	Codes       *controllers.CodeController
	Profile     *controllers.ProfileController
	Community   *controllers.CommunityController
	Leaderboard *controllers.LeaderboardController
	Challenge   *controllers.ChallengeController
	Admin       *controllers.AdminController
}

// Register mounts the public auth routes, the authenticated user routes
// and the casbin guarded admin routes on r.
func Register(r gin.IRouter, store db.Store, authz *middlewares.Authorizer, h Handlers, authRatePerSec float64) {
	throttle := middlewares.Throttle(authRatePerSec, time.Hour)
	registerAuthRoutes(r, h.Auth, throttle)

	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware(store))
	registerCodeRoutes(auth, h.Codes)
	registerProfileRoutes(auth, h.Profile)
	registerCommunityRoutes(auth, h.Community, h.Leaderboard, h.Challenge)

	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(store))
	registerAdminRoutes(admin, authz, h.Admin)
}
