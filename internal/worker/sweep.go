package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeSweepStatus = "appointment:sweep_status"

// Sweeper moves stored appointment statuses forward to match the clock.
type Sweeper interface {
	SweepStatuses(ctx context.Context, batchSize int) (int, error)
}

type SweepPayload struct {
	BatchSize int `json:"batch_size"`
}

func NewSweepTask(batchSize int) (*asynq.Task, error) {
	b, err := json.Marshal(SweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSweepStatus, b), nil
}

// HandleSweep runs one sweep batch. A malformed payload is not retried.
func HandleSweep(s Sweeper, m *metrics.Collector, log *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p SweepPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Error("invalid sweep payload", zap.Error(err))
			return fmt.Errorf("decoding sweep payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.BatchSize <= 0 {
			return fmt.Errorf("batch size must be positive: %w", asynq.SkipRetry)
		}

		moved, err := s.SweepStatuses(ctx, p.BatchSize)
		if err != nil {
			if m != nil {
				m.SweepRuns.WithLabelValues("error").Inc()
			}
			log.Error("status sweep failed", zap.Error(err))
			return err
		}
		if m != nil {
			m.SweepRuns.WithLabelValues("ok").Inc()
		}
		log.Debug("status sweep done", zap.Int("moved", moved))
		return nil
	}
}

// Runner owns the asynq scheduler that enqueues sweeps on a cron spec and the
// server that processes them.
type Runner struct {
	cfg       config.SweepConfig
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	log       *zap.Logger
}

func NewRunner(redis config.RedisConfig, cfg config.SweepConfig, loc *time.Location, s Sweeper, m *metrics.Collector, log *zap.Logger) *Runner {
	opt := asynq.RedisClientOpt{
		Addr:     redis.Addr,
		Password: redis.Password,
		DB:       redis.DB,
	}
	sugar := log.Named("asynq").Sugar()

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{cfg.Queue: 1},
		Logger:      sugar,
	})
	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: loc,
		Logger:   sugar,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepStatus, HandleSweep(s, m, log))

	return &Runner{cfg: cfg, server: srv, scheduler: sched, mux: mux, log: log}
}

// Start registers the periodic sweep and starts both the scheduler and the
// processing server. It does not block.
func (r *Runner) Start() error {
	task, err := NewSweepTask(r.cfg.BatchSize)
	if err != nil {
		return err
	}
	entryID, err := r.scheduler.Register(r.cfg.Interval, task,
		asynq.Queue(r.cfg.Queue),
		asynq.MaxRetry(1),
		asynq.Timeout(time.Minute),
		// a slow sweep must not pile up behind itself
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("registering sweep schedule %q: %w", r.cfg.Interval, err)
	}
	if err := r.scheduler.Start(); err != nil {
		return fmt.Errorf("starting sweep scheduler: %w", err)
	}
	if err := r.server.Start(r.mux); err != nil {
		r.scheduler.Shutdown()
		return fmt.Errorf("starting sweep worker: %w", err)
	}

	r.log.Info("status sweep scheduled",
		zap.String("entry_id", entryID),
		zap.String("interval", r.cfg.Interval),
		zap.Int("batch_size", r.cfg.BatchSize),
	)
	return nil
}

func (r *Runner) Shutdown() {
	r.scheduler.Shutdown()
	r.server.Shutdown()
}
