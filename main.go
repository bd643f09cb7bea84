package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Scalingo/sclng-repo-health/cache"
	"github.com/Scalingo/sclng-repo-health/config"
	"github.com/Scalingo/sclng-repo-health/controller"
	"github.com/Scalingo/sclng-repo-health/logger"
	"github.com/Scalingo/sclng-repo-health/metrics"
	"github.com/Scalingo/sclng-repo-health/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigFileNotFound) {
		log.Warning(err.Error())
	} else if err != nil {
		log.WithError(err).Fatal("unable to load configuration")
	}

	// configure logger
	logger.Setup(*cfg)

	// setup github client
	// we do here and pass the client to Github service to easily improve tests with mock client
	if cfg.Github.Token != "" {
		log.Debug("will setup github client with authorization token")
	}

	githubClient := service.NewGithubClient(context.Background(), cfg.Github.Token)

	// setup local rate limiter
	// execute first request to github to fetch current rate limits
	log.Debug("loading current rate limit from github")
	rateLimits, _, err := githubClient.RateLimit.Get(context.Background())
	if err != nil {
		log.WithError(err).Panic("unable to load current github rate limits")
	}

	log.WithFields(log.Fields{
		"totalAvailable":    rateLimits.Core.Limit,
		"remainingRequests": rateLimits.Core.Remaining,
	}).Debug("will setup local rate limiter with rate limits infos from github")

	// setup rate limiter
	// consume X tokens according to the number of remaining tokens
	// this help us to have a right rate limiter even if external requests are made
	rateLimiter := rate.NewLimiter(rate.Every(time.Hour/time.Duration(max(1, rateLimits.Core.Limit))), rateLimits.Core.Limit)

	if !rateLimiter.AllowN(time.Now(), rateLimits.Core.Limit-rateLimits.Core.Remaining) {
		log.Panic("unable to configure the github rate limiter")
	}

	// enrichment cache is optional, the service works without it
	store, err := cache.New(cfg.Cache)
	if err != nil {
		log.WithError(err).Warning("enrichment cache unavailable, continue without cache")
		store = cache.NopStore{}
	}

	defer store.Close()

	// setup handlers and services
	m := metrics.New()
	githubService := service.NewGithubService(*cfg, githubClient, rateLimiter, store, m)
	apiController := controller.NewAPIController(*cfg, githubService)

	// setup server and define all routes
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	server := &http.Server{
		Addr:    ":" + cfg.API.ListenPort,
		Handler: router,
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type, Content-Length, Accept-Encoding, Host, accept, Origin, Cache-Control, X-Requested-With"},
			MaxAge:       12 * time.Hour,
		}),
	)

	api := router.Group("")
	{
		api.GET("/repos", apiController.GetRepositories)
		api.GET("/repos/:owner/:name", apiController.GetRepository)
		api.GET("/compare", apiController.CompareRepositories)
		api.GET("/health", apiController.Health)
		api.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// start with configuration
	go func() {
		log.Info("server listening on port " + cfg.API.ListenPort)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("error while starting server")
		}
	}()

	// wait for interrupt signal to gracefully shut down the server with a timeout of 15 seconds.
	// kill default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("SIGINT, SIGTERM received, will shut down server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	} else {
		log.Info("Application stopped gracefully !")
	}
}
