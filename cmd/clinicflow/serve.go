package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/worker"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/holiday"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the status sweep worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")
	return cmd
}

func runServer(migrate bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initialising tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	m := metrics.NewCollector("clinicflow")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if migrate {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}
	if err := database.Instrument(db, m.DBQueryDuration, cfg.Database.SlowQueryThreshold, log); err != nil {
		return fmt.Errorf("instrumenting database: %w", err)
	}
	log.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	loc := cfg.App.Location()

	calendar, err := buildCalendar(cfg.Holidays, rdb, m, log)
	if err != nil {
		return err
	}

	publisher := buildPublisher(cfg.Events, m, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing event publisher", zap.Error(err))
		}
	}()

	auditSvc := service.NewAuditService(postgres.NewAuditRepository(db), m, log)
	defer auditSvc.Shutdown()

	providerRepo := postgres.NewProviderRepository(db)
	appointmentSvc := service.NewAppointmentService(service.AppointmentDeps{
		Appointments: postgres.NewAppointmentRepository(db),
		Providers:    providerRepo,
		Holidays:     calendar,
		Events:       publisher,
		Audit:        auditSvc,
		Metrics:      m,
		Location:     loc,
		Log:          log.Named("appointments"),
	})
	providerSvc := service.NewProviderService(providerRepo, auditSvc, log.Named("providers"))
	reservationSvc := service.NewReservationService(service.ReservationDeps{
		Rooms:        postgres.NewRoomRepository(db),
		Reservations: postgres.NewReservationRepository(db),
		Events:       publisher,
		Audit:        auditSvc,
		Metrics:      m,
		Location:     loc,
		Log:          log.Named("reservations"),
	})

	if cfg.Sweep.Enabled {
		runner := worker.NewRunner(cfg.Redis, cfg.Sweep, loc, appointmentSvc, m, log.Named("sweep"))
		if err := runner.Start(); err != nil {
			return err
		}
		defer runner.Shutdown()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, 10*time.Minute)
	go limiter.Cleanup(ctx)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		Appointments:   appointmentSvc,
		Providers:      providerSvc,
		Reservations:   reservationSvc,
		Tokens:         auth.NewJWTManager(cfg.JWT),
		Readiness:      readinessChecks(db, rdb),
		Metrics:        m,
		MetricsHandler: metrics.MetricsHandler(),
		RateLimiter:    limiter,
		CORS:           cfg.CORS,
		ServiceName:    cfg.Tracing.ServiceName,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("http server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func buildCalendar(cfg config.HolidayConfig, rdb *redis.Client, m *metrics.Collector, log *zap.Logger) (holiday.Calendar, error) {
	static, err := holiday.NewStaticCalendar(cfg.Dates, m.HolidayLookups)
	if err != nil {
		return nil, err
	}
	if cfg.Source != "http" {
		return static, nil
	}
	return holiday.NewHTTPCalendar(holiday.HTTPCalendarConfig{
		URLTemplate: cfg.URL,
		Timeout:     cfg.Timeout,
		CacheTTL:    cfg.CacheTTL,
	}, holiday.NewRedisCache(rdb), static, m.HolidayLookups, log.Named("holidays")), nil
}

func buildPublisher(cfg config.EventsConfig, m *metrics.Collector, log *zap.Logger) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, m.EventsDropped, log.Named("events"))
}

func readinessChecks(db *gorm.DB, rdb *redis.Client) []v1.ReadinessCheck {
	return []v1.ReadinessCheck{
		{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}},
	}
}
