package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"codegalaxy/config"
	"codegalaxy/internal/logger"
	"codegalaxy/internal/metrics"
	"codegalaxy/middlewares"
	"codegalaxy/routes"
	"codegalaxy/utils"
	"codegalaxy/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if cfg.JWT.Secret == "" {
		zl.Fatal("JWT secret is not configured")
	}
	utils.SetJWTSecret(cfg.JWT.Secret)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialise application", zap.Error(err))
	}
	defer app.Close()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := setupRouter(cfg, app, zl)
	if err != nil {
		zl.Fatal("Failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("Server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func setupRouter(cfg *config.Config, app *application, zl *zap.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	httpMetrics, err := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}

	router.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.AccessLog(zl),
		httpMetrics.Handler(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
		}),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "activityClients": app.hub.Count()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", websocket.Handler(app.store, app.hub, zl))

	routes.Register(router, app.store, app.authz, app.handlers, cfg.RateLimit.AuthRequestsPerSec)
	return router, nil
}
