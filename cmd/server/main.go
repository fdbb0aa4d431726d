package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/facilityops/key-custody/internal/config"
	"github.com/facilityops/key-custody/internal/custody"
	"github.com/facilityops/key-custody/internal/database"
	"github.com/facilityops/key-custody/internal/handler"
	"github.com/facilityops/key-custody/internal/queue"
	"github.com/facilityops/key-custody/internal/repository"
	"github.com/facilityops/key-custody/internal/router"
	"github.com/facilityops/key-custody/internal/statuscache"
)

func main() {
	// .env is a development convenience; in production the variables
	// arrive through the environment and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Redis is optional; a nil client disables the board cache and the
	// rate limiter degrades to pass-through.
	rdb := config.NewRedisClient()

	spaceRepo := repository.NewSpaceRepo(db)
	personRepo := repository.NewPersonRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	authRepo := repository.NewAuthorizationRepo(db)
	statusReader := repository.NewStatusReader(db)

	engine := custody.NewEngine(txRepo)
	projector := custody.NewProjector(statusReader, cfg.CutoffHour)
	resolver := custody.NewResolver(authRepo)
	cache := statuscache.New(rdb, cfg.StatusCacheTTL)

	h := router.Handlers{
		Operation: handler.NewOperationHandler(engine, projector, resolver, spaceRepo, personRepo, txRepo, cache),
		Directory: handler.NewDirectoryHandler(spaceRepo, personRepo),
		Gate:      handler.NewGateHandler(cfg),
		Registry:  handler.NewAdminRegistryHandler(spaceRepo, personRepo, cache),
		Auths:     handler.NewAdminAuthorizationHandler(authRepo),
		Reports:   handler.NewAdminReportHandler(txRepo, projector),
		QR:        handler.NewQRHandler(spaceRepo, cfg.BaseURL),
	}

	e := echo.New()
	router.RegisterRoutes(e, h, rdb, cfg.CheckoutBurst)
	router.RegisterAdmin(e, h, cfg.TokenSecret)

	// The audit consumer tails the custody queue into the local log.
	// It reconnects on its own; a dead broker never blocks the API.
	go func() {
		if err := queue.StartCustodyConsumer(); err != nil {
			log.Printf("custody consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
