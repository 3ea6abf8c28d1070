package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/worker"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and booking constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

func sweepCmd() *cobra.Command {
	var enqueue bool
	var batchSize int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Move stored appointment statuses forward to match the clock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if batchSize <= 0 {
				batchSize = cfg.Sweep.BatchSize
			}

			if enqueue {
				task, err := worker.NewSweepTask(batchSize)
				if err != nil {
					return err
				}
				client := asynq.NewClient(asynq.RedisClientOpt{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()

				info, err := client.EnqueueContext(cmd.Context(), task, asynq.Queue(cfg.Sweep.Queue))
				if err != nil {
					return fmt.Errorf("enqueueing sweep: %w", err)
				}
				log.Info("sweep enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
				return nil
			}

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return err
			}
			// Private registry: a one-shot run exposes no metrics endpoint.
			m := metrics.NewCollectorWith("clinicflow", prometheus.NewRegistry())
			auditSvc := service.NewAuditService(postgres.NewAuditRepository(db), m, log)
			defer auditSvc.Shutdown()

			svc := service.NewAppointmentService(service.AppointmentDeps{
				Appointments: postgres.NewAppointmentRepository(db),
				Providers:    postgres.NewProviderRepository(db),
				Audit:        auditSvc,
				Metrics:      m,
				Location:     cfg.App.Location(),
				Log:          log,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			moved, err := svc.SweepStatuses(ctx, batchSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d appointment(s) moved forward\n", moved)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "hand the sweep to the background worker instead of running it here")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "appointments per run (defaults to SWEEP_BATCH_SIZE)")
	return cmd
}

// tokenCmd issues access tokens for local testing and operator scripts.
func tokenCmd() *cobra.Command {
	var (
		userID     string
		email      string
		role       string
		providerID string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}

			claims := &domain.Claims{Email: email, Role: domain.Role(role)}
			if !claims.Role.IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if userID == "" {
				claims.UserID = uuid.New()
			} else if claims.UserID, err = uuid.Parse(userID); err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if providerID != "" {
				id, err := uuid.Parse(providerID)
				if err != nil {
					return fmt.Errorf("invalid --provider: %w", err)
				}
				claims.ProviderID = &id
			}
			if claims.Role == domain.RoleDoctor && claims.ProviderID == nil {
				return errors.New("doctor tokens need --provider")
			}

			token, expiresAt, err := auth.NewJWTManager(cfg.JWT).IssueAccessToken(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, token)
			fmt.Fprintf(os.Stderr, "user %s, role %s, expires %s\n", claims.UserID, claims.Role, expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "subject user id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RolePatient), "admin, doctor, receptionist or patient")
	cmd.Flags().StringVar(&providerID, "provider", "", "provider id linked to a doctor account")
	return cmd
}
