package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"codegalaxy/config"
	"codegalaxy/controllers"
	"codegalaxy/db"
	"codegalaxy/internal/metrics"
	"codegalaxy/internal/ratelimit"
	"codegalaxy/middlewares"
	"codegalaxy/routes"
	"codegalaxy/services"
	"codegalaxy/utils"
	"codegalaxy/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// application holds the wired components shared by the router.
type application struct {
	store    db.Store
	authz    *middlewares.Authorizer
	hub      *websocket.Hub
	handlers routes.Handlers
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*application, error) {
	app := &application{}

	// Persistence. Outside production a missing MongoDB falls back to memory.
	usingMongo := false
	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		if cfg.Env == "production" {
			return nil, err
		}
		zl.Warn("MongoDB unavailable, using in-memory store", zap.Error(err))
		app.store = db.NewMemoryStore()
	} else {
		mongoStore := db.NewMongoStore(db.MongoDatabase, zl.Named("db"))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		app.store = mongoStore
		app.closers = append(app.closers, db.DisconnectMongoDB)
		usingMongo = true
		zl.Info("Connected to MongoDB")
	}

	// Rate limiting and activity fan-out share the Redis connection.
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	app.hub = websocket.NewHub(zl.Named("ws"))
	var feed services.ActivityPublisher = app.hub
	if cfg.Redis.Addr != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zl.Warn("Redis unavailable, using in-process limiter", zap.Error(err))
		} else {
			limiter = ratelimit.NewRedisLimiter(rdb)
			relay := websocket.NewRelay(rdb, app.hub, zl.Named("relay"))
			go relay.Run(ctx)
			feed = relay
			app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })
		}
	}

	var authz *middlewares.Authorizer
	var err error
	if usingMongo {
		authz, err = middlewares.NewAuthorizer(cfg.Database.URI, zl.Named("rbac"))
	} else {
		authz, err = middlewares.NewLocalAuthorizer(zl.Named("rbac"))
	}
	if err != nil {
		return nil, err
	}
	app.authz = authz

	usage, err := metrics.NewUsageRecorder(app.store, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		zl.Warn("AI provider not configured, model calls will fail", zap.String("provider", cfg.AI.Provider), zap.Error(err))
	}
	gateway := services.NewGateway(gen, services.ModelEndpoints(cfg.AI.Provider, cfg.AI.Models), usage,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second, zl.Named("ai"))

	var identity services.IdentityProvider
	if cfg.Auth.Provider == "cognito" {
		cognito, err := services.NewCognitoIdentity(ctx, cfg.Cognito.Region, cfg.Cognito.AppClientId, cfg.Cognito.AppClientSecret)
		if err != nil {
			return nil, err
		}
		identity = cognito
	}

	mailer := &utils.SMTPMailer{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		SenderEmail: cfg.SMTP.SenderEmail,
		SenderName:  cfg.SMTP.SenderName,
	}
	if !mailer.Configured() {
		zl.Warn("SMTP credentials missing, emails will not be delivered")
	}
	notifier := services.NewNotifier(mailer, cfg.Server.AppURL, cfg.Admin.Email, zl.Named("mail"))

	admin := services.AdminCredentials{Username: cfg.Admin.Username, Password: cfg.Admin.Password, Email: cfg.Admin.Email}
	sessionTTL := time.Duration(cfg.JWT.SessionTimeoutMinutes) * time.Minute

	challenges := services.NewChallengeService(app.store, gateway, feed, zl.Named("challenge"))
	reviews := services.NewReviewService(app.store, notifier, feed, zl.Named("reviews"))
	leaderboard := services.NewLeaderboardService(app.store, zl.Named("leaderboard"))

	app.handlers = routes.Handlers{
		Auth: controllers.NewAuthController(
			services.NewAuthService(app.store, notifier, identity, admin, sessionTTL, feed, zl.Named("auth")), zl),
		Codes: controllers.NewCodeController(
			services.NewCodeService(app.store, gateway, limiter, cfg.RateLimit.GenerationsPerHour, feed, zl.Named("codes")),
			gateway, app.store, zl),
		Profile: controllers.NewProfileController(services.NewProfileService(app.store, challenges, zl.Named("profile")), zl),
		Community: controllers.NewCommunityController(reviews,
			services.NewSupportService(app.store, notifier, zl.Named("support")), zl),
		Leaderboard: controllers.NewLeaderboardController(leaderboard, services.NewSearchService(app.store, zl.Named("search"))),
		Challenge:   controllers.NewChallengeController(challenges, zl),
		Admin: controllers.NewAdminController(
			services.NewAdminService(app.store, gateway, leaderboard, notifier, zl.Named("admin")), reviews, zl),
	}

	// Warm today's challenge so the first visitor does not wait on the model.
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, err := challenges.Today(warmCtx); err != nil {
			zl.Warn("Failed to prepare daily challenge", zap.Error(err))
		}
	}()

	return app, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (services.TextGenerator, error) {
	switch cfg.AI.Provider {
	case "huggingface":
		client := &http.Client{Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second}
		hf, err := services.NewHuggingFaceGenerator(cfg.HuggingFace.ApiKey, cfg.HuggingFace.BaseURL, client)
		if err != nil {
			return nil, err
		}
		return hf, nil
	case "gemini":
		gemini, err := services.NewGeminiGenerator(ctx, cfg.Gemini.ApiKey)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
}

func (a *application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i](ctx)
	}
}
