package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/schulwerk/untis-speech-api/api/swagger"
	"github.com/schulwerk/untis-speech-api/internal/handler"
	"github.com/schulwerk/untis-speech-api/internal/middleware"
	"github.com/schulwerk/untis-speech-api/internal/service"
	"github.com/schulwerk/untis-speech-api/internal/untis"
	"github.com/schulwerk/untis-speech-api/pkg/cache"
	"github.com/schulwerk/untis-speech-api/pkg/config"
	"github.com/schulwerk/untis-speech-api/pkg/logger"
	corsmiddleware "github.com/schulwerk/untis-speech-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schulwerk/untis-speech-api/pkg/middleware/requestid"
)

// @title Untis Speech API
// @version 0.1.0
// @description Renders WebUntis timetable deviations as German voice-assistant sentences
// @BasePath /
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var sessions untis.SessionStore
	if cfg.SessionCache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		sessions = untis.NewRedisSessionStore(redisClient, cfg.SessionCache.TTL)
	}

	metricsSvc := service.NewMetricsService()
	untisClient := untis.NewClient(cfg.Untis, logr)
	speechSvc := service.NewSpeechService(untisClient, sessions, validator.New(), logr, metricsSvc, time.Now)

	speakableHandler := handler.NewSpeakableHandler(speechSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/speakable", speakableHandler.Speakable)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "school", cfg.Untis.School)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
