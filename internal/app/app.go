package app

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"acumen/internal/cache"
	"acumen/internal/config"
	"acumen/internal/repository"
	"acumen/internal/service"
	"acumen/internal/transport/rest"
	"acumen/internal/transport/ws"
)

// App wires repositories, caches and services around the connected
// infrastructure. It is the single composition root; cmd/server only
// connects Mongo and Redis and hands them here.
type App struct {
	LearnerRepo     repository.LearnerRepo
	ObjectiveRepo   repository.ObjectiveRepo
	QuestionRepo    repository.QuestionRepo
	SessionRepo     repository.SessionRepo
	ResponseRepo    repository.ResponseRepo
	MasteryRepo     repository.MasteryRepo
	CalibrationRepo repository.CalibrationRepo

	SessionCache  cache.SessionCache
	CooldownCache cache.CooldownCache
	PeerCache     cache.PeerCache

	AuthService        *service.AuthService
	LearnerService     *service.LearnerService
	BankService        *service.BankService
	SessionService     *service.SessionService
	MasteryService     *service.MasteryService
	CalibrationService *service.CalibrationService

	WSHub *ws.Hub
}

// New assembles the application graph and starts its background
// workers (the WebSocket hub and the discrimination recompute worker).
func New(db *mongo.Database, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *App {
	a := &App{
		LearnerRepo:     repository.NewLearnerRepo(db),
		ObjectiveRepo:   repository.NewObjectiveRepo(db),
		QuestionRepo:    repository.NewQuestionRepo(db),
		SessionRepo:     repository.NewSessionRepo(db),
		ResponseRepo:    repository.NewResponseRepo(db),
		MasteryRepo:     repository.NewMasteryRepo(db),
		CalibrationRepo: repository.NewCalibrationRepo(db),

		SessionCache:  cache.NewSessionCache(rdb),
		CooldownCache: cache.NewCooldownCache(rdb),
		PeerCache:     cache.NewPeerCache(rdb),

		WSHub: ws.NewHub(logger),
	}

	a.AuthService = service.NewAuthService()
	a.BankService = service.NewBankService(a.QuestionRepo, a.ObjectiveRepo, a.ResponseRepo, a.CooldownCache, cfg.Engine, logger)
	a.CalibrationService = service.NewCalibrationService(a.CalibrationRepo, a.ResponseRepo, a.LearnerRepo, a.PeerCache, cfg.Engine, logger)
	a.MasteryService = service.NewMasteryService(a.MasteryRepo, a.ObjectiveRepo, a.ResponseRepo, cfg.Engine, logger)
	a.LearnerService = service.NewLearnerService(a.LearnerRepo, a.AuthService, a.CalibrationService, logger)
	a.SessionService = service.NewSessionService(a.SessionRepo, a.ResponseRepo, a.LearnerRepo, a.SessionCache,
		a.BankService, a.MasteryService, a.CalibrationService, cfg.Engine, logger)

	// The hub implements service.Broadcaster; set after construction to
	// avoid an import cycle.
	a.SessionService.SetBroadcaster(a.WSHub)
	a.MasteryService.SetBroadcaster(a.WSHub)

	return a
}

// RouterContainer exposes the dependencies the REST router needs.
func (a *App) RouterContainer(logger *zap.Logger) *rest.Container {
	return &rest.Container{
		AuthService:        a.AuthService,
		LearnerService:     a.LearnerService,
		SessionService:     a.SessionService,
		BankService:        a.BankService,
		MasteryService:     a.MasteryService,
		CalibrationService: a.CalibrationService,
		WSHub:              a.WSHub,
		Logger:             logger,
	}
}

// Close stops background workers. The recompute worker drains its
// queue before returning.
func (a *App) Close() {
	a.BankService.Close()
}
