package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"CasinoApi/cmd/db"
	"CasinoApi/internal/games"
	"CasinoApi/internal/middleware"
	"CasinoApi/internal/service"
	"CasinoApi/internal/settle"
	"CasinoApi/pkg/cache"
	"CasinoApi/pkg/logger"
)

const apiPrefix = "api/"

func Start() {
	gin.DisableConsoleColor()

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	// Redis is advisory (cooldowns, maintenance flag); the platform runs
	// without it.
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "redis:6379"
	}
	betCache, err := cache.New(redisAddr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		logger.Warn("Redis unavailable, bet cooldowns disabled: %v", err)
	} else {
		service.InitBetService(betCache)
		router.Use(middleware.MaintenanceMiddleware(betCache))
	}

	engine := settle.NewEngine(db.DB, service.LiveFeedWS)
	service.InitRoundService(engine)

	// One lifecycle manager per registered game.
	ctx, cancelManagers := context.WithCancel(context.Background())
	defer cancelManagers()
	for _, name := range games.Names() {
		game, err := games.Lookup(name)
		if err != nil {
			logger.Fatal("%v", err)
		}
		manager := settle.NewManager(db.DB, engine, game, settle.DefaultManagerConfig())
		go manager.Supervise(ctx)
	}

	authorized := router.Group("/", middleware.AuthMiddleware())

	// router
	{
		// auth
		router.POST(apiPrefix+"users/auth/signup", service.SignUp)
		router.POST(apiPrefix+"users/auth/login", service.AuthLogin)
	}

	// authorized
	{
		// live settlement feed
		authorized.GET(apiPrefix+"ws/live", service.LiveFeedWS.LiveFeedWebsocketHandler)
		authorized.GET(apiPrefix+"live/wins", service.LiveFeedWS.GetRecentEvents)

		// users
		authorized.GET(apiPrefix+"users/balance", service.GetUserBalance)
		authorized.GET(apiPrefix+"users/level", service.GetUserLevel)
		authorized.GET(apiPrefix+"users/stats", service.GetUserGameStats)

		// games
		authorized.POST(apiPrefix+"games/:game/place", service.PlaceBet)
		authorized.GET(apiPrefix+"games/:game/round", service.GetCurrentRound)
		authorized.GET(apiPrefix+"games/:game/history", service.GetUserGameHistory)

		// rounds
		authorized.POST(apiPrefix+"rounds/:id/resolve", service.ResolveRound)
		authorized.POST(apiPrefix+"rounds/:id/settle", service.SettleRound)
		authorized.GET(apiPrefix+"rounds/:id/fairness", service.GetRoundFairness)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: router.Handler(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server...")
	cancelManagers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server Shutdown: %v", err)
	}

	logger.Info("Server exiting")
}
