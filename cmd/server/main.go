// Command server runs the registration API. It wires the MySQL-backed
// stores, the in-process change feed, the availability synchronizer and
// the AMQP bridge, then serves HTTP until interrupted.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/tilawah-registration/internal/admission"
	"github.com/iliyamo/tilawah-registration/internal/availability"
	"github.com/iliyamo/tilawah-registration/internal/config"
	"github.com/iliyamo/tilawah-registration/internal/database"
	"github.com/iliyamo/tilawah-registration/internal/feed"
	"github.com/iliyamo/tilawah-registration/internal/handler"
	"github.com/iliyamo/tilawah-registration/internal/queue"
	"github.com/iliyamo/tilawah-registration/internal/repository"
	"github.com/iliyamo/tilawah-registration/internal/router"
	"github.com/iliyamo/tilawah-registration/internal/settings"
)

func main() {
	_ = godotenv.Load() // .env is optional, real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is absent, rate limiting degrades to local

	registrants := repository.NewRegistrantRepo(db, cfg.DefaultMaxPerSlot)
	slots := repository.NewSlotRepo(db)
	settingsRepo := repository.NewSettingRepo(db)

	bus := feed.NewBus()
	defer bus.Close()

	hub := availability.NewHub()
	defer hub.Close()

	// The synchronizer is the only goroutine that recomputes and
	// broadcasts snapshots. Everything else just nudges it through
	// the feed or Refresh.
	prop := settings.NewPropagator(settingsRepo, bus, nil, cfg.DefaultMaxPerSlot, cfg.SettingsPoll)
	ledger := availability.NewLedger(registrants, slots, prop)
	sync := availability.NewSynchronizer(ledger, hub, bus, cfg.AvailabilityRefresh)
	prop.SetRefresher(sync)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := prop.Load(ctx); err != nil {
		log.Printf("settings: initial load failed, using default capacity %d: %v", cfg.DefaultMaxPerSlot, err)
	}

	controller := admission.NewController(registrants, bus, sync)

	regHandler := handler.NewRegistrationHandler(controller, settingsRepo)
	availHandler := handler.NewAvailabilityHandler(ledger, sync, hub)
	adminHandler := handler.NewAdminHandler(slots, registrants, settingsRepo, bus)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterRoutes(e, regHandler, availHandler, adminHandler, rdb, cfg.JWTSecret)

	origin := uuid.NewString() // identifies this instance on the broker
	brokerURL := queue.BrokerURL()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sync.Run(ctx) })
	g.Go(func() error { return prop.Run(ctx) })
	g.Go(func() error { return queue.NewPublisher(brokerURL, origin, bus).Run(ctx) })
	g.Go(func() error { return queue.NewConsumer(brokerURL, origin, bus).Run(ctx) })
	g.Go(func() error {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("server: %v", err)
	}
}
