package app

import (
	"backend/internal/app/board"
	"backend/internal/app/health"
	"backend/internal/app/session"
	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/db/seeder"
	"backend/internal/gateways/websocket"
	"backend/internal/providers/redis"
	"backend/internal/router"
	"backend/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Application struct {
	Router *router.Router
	DB     *gorm.DB
}

func Bootstrap(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		return nil, err
	}

	if cfg.Env == "dev" {
		seed := seeder.NewSeeder(dbConn, logger)
		if err := seed.Seed(); err != nil {
			logger.Warn("Failed to run seeders", zap.Error(err))
		}
	}

	redisProvider := redis.NewRedisProvider(cfg.RedisURL, logger, cfg.RedisTTL)
	eventBus := utils.NewEventBus()

	sessionRepo := session.NewRepository(dbConn)
	boardRepo := board.NewRepository(dbConn)

	sessionService := session.NewService(sessionRepo, redisProvider, logger)
	boardService := board.NewService(boardRepo, sessionService, eventBus, logger)

	hub := websocket.NewHub(logger, boardRepo, sessionService, eventBus, cfg.ActivityTTL)
	go hub.Run()

	healthHandler := health.NewHandler(&utils.HealthChecker{
		DB:    dbConn,
		Redis: redisProvider.Client,
	})
	sessionHandler := session.NewHandler(sessionService)
	boardHandler := board.NewHandler(boardService)

	r := router.NewRouter(logger)

	r.RegisterHealthRoutes(healthHandler)
	r.RegisterWebSocketRoutes(hub)
	r.RegisterSessionRoutes(sessionHandler)
	r.RegisterBoardRoutes(boardHandler)

	return &Application{
		Router: r,
		DB:     dbConn,
	}, nil
}
