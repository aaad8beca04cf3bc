// Command api runs the barbershop booking backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barberosa_backend/internal/automation"
	"barberosa_backend/internal/booking"
	bookingservice "barberosa_backend/internal/booking/service"
	"barberosa_backend/internal/catalog"
	"barberosa_backend/internal/config"
	"barberosa_backend/internal/crm"
	"barberosa_backend/internal/crm/amocrm"
	"barberosa_backend/internal/db"
	"barberosa_backend/internal/events"
	apphttp "barberosa_backend/internal/http"
	"barberosa_backend/internal/http/router"
	"barberosa_backend/internal/tracking"
	"barberosa_backend/internal/tracking/visitor"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// Primary store. Optional: without DATABASE_URL the funnel still
	// accepts bookings, they just travel to the CRM and webhook only.
	var pool *pgxpool.Pool
	if cfg.StoreEnabled() {
		var err error
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			return err
		}
	} else {
		log.SinkDisabled("database", "DATABASE_URL not set")
	}

	bus := events.NewInMemoryBus(log)
	val := validator.New()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	// CRM sink. Optional like the store.
	var crmSink bookingservice.CRMSink
	crmModule := buildCRM(cfg, cat, log)
	if crmModule != nil {
		crmModule.RegisterHandlers(bus)
		crmSink = crmModule.Sink()
	}

	// Automation webhook. Optional.
	var notifier bookingservice.Notifier
	if cfg.NotifierEnabled() {
		n := automation.NewNotifier(cfg.ActiveWebhookURL(), cfg.SinkTimeout, log)
		automation.NewModule(n, log).RegisterHandlers(bus)
		notifier = n
		if cfg.WebhookTest {
			log.Info("automation webhook in test mode", "url", cfg.ActiveWebhookURL())
		}
	} else {
		log.SinkDisabled("automation", "N8N_WEBHOOK_URL not set")
	}

	modules := []apphttp.Module{
		booking.NewModule(pool, crmSink, notifier, bus, val, log),
		tracking.NewModule(visitorStores(ctx, cfg, log), bus, val, log),
		catalog.NewModule(cat),
	}

	var health router.HealthChecker
	if pool != nil {
		health = pool
	}

	engine := router.New(cfg, log, health, modules...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Detached event handlers (cold leads in flight) get the same grace
	// period as open connections.
	bus.Wait()

	log.Info("shutdown complete")
	return nil
}

// visitorStores picks the backend for server-side visitor state: Redis when
// configured and reachable, per-process memory otherwise. Tracking state is
// advisory, so an unreachable Redis degrades instead of failing startup.
func visitorStores(ctx context.Context, cfg *config.Config, log *logger.Logger) visitor.StoreProvider {
	if cfg.RedisAddr == "" {
		log.Info("visitor state in process memory", "reason", "REDIS_ADDR not set")
		return visitor.NewMemoryStores()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.SinkError("redis", "ping", err)
		log.Info("visitor state in process memory", "reason", "redis unreachable")
		return visitor.NewMemoryStores()
	}

	log.Info("visitor state in redis", "addr", cfg.RedisAddr)
	return visitor.NewRedisStores(client)
}

func buildCRM(cfg *config.Config, cat *catalog.Catalog, log *logger.Logger) *crm.Module {
	if !cfg.CRMEnabled() {
		log.SinkDisabled("amocrm", "AMOCRM_DOMAIN or AMOCRM_ACCESS_TOKEN not set")
		return nil
	}

	client := amocrm.NewClient(cfg.AmoCRMDomain, cfg.AmoCRMAccessToken, cfg.SinkTimeout)
	return crm.NewModule(client, cat, crm.Config{
		PipelineID:       cfg.AmoCRMPipelineID,
		FieldService:     cfg.AmoCRMFieldService,
		FieldMaster:      cfg.AmoCRMFieldMaster,
		FieldAppointment: cfg.AmoCRMFieldAppointment,
		FieldVisitorID:   cfg.AmoCRMFieldVisitorID,
	}, log)
}
