package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-academic-transition/api/swagger"
	"github.com/noah-isme/sma-academic-transition/internal/bootstrap"
	"github.com/noah-isme/sma-academic-transition/internal/handler"
	"github.com/noah-isme/sma-academic-transition/internal/middleware"
	"github.com/noah-isme/sma-academic-transition/internal/models"
	"github.com/noah-isme/sma-academic-transition/pkg/config"
	"github.com/noah-isme/sma-academic-transition/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-academic-transition/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-academic-transition/pkg/middleware/requestid"
)

// @title SMA Academic Transition API
// @version 1.0.0
// @description Academic year transition and fee ledger carry-forward
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	rt, err := bootstrap.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logr.Warn("shutdown close failed", zap.Error(err))
		}
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(cfg, rt, logr)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, rt *bootstrap.Runtime, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(rt.Metrics))

	metricsHandler := handler.NewMetricsHandler(rt.Metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	academicYears := handler.NewAcademicYearHandler(rt.AcademicYears)
	transitions := handler.NewTransitionHandler(rt.Transition)

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("/academic-years", middleware.JWT(rt.Tokens))
	secured.GET("", academicYears.Current)
	secured.POST("/transition", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), transitions.Run)

	return r
}
