package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/redact"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// StuckJobAge defines how long a job can be in processing state
	// before it's considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes.
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background job processing
type Runner struct {
	store      Store
	rebuilder  Rebuilder
	queue      *Queue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
	config     RunnerConfig

	// running holds the IDs of jobs executing in this process. The stuck job
	// monitor never resets them.
	runningMu sync.Mutex
	running   map[uuid.UUID]struct{}

	logger     *slog.Logger
	errHandler func(job Job, err error)
}

// NewRunner creates a new Runner. rebuilder is used to turn recovered records
// back into executable jobs.
func NewRunner(store Store, rebuilder Rebuilder, config RunnerConfig, log *slog.Logger) *Runner {
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "job_runner")

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		rebuilder:  rebuilder,
		queue:      NewQueue(config.QueueSize, log),
		ctx:        logger.WithLogger(ctx, log),
		cancelFunc: cancel,
		config:     config,
		running:    make(map[uuid.UUID]struct{}),
		logger:     log,
		errHandler: func(job Job, err error) {
			log.Error("job execution failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", redact.Error(err))
		},
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Submit persists the job and adds it to the queue.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if err := r.queue.Enqueue(job); err != nil {
		// A job that never reaches a worker must not look runnable to clients.
		if updateErr := r.store.UpdateJobStatus(ctx, job.ID(), StatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark rejected job as failed",
				"job_id", job.ID(),
				"error", updateErr)
		}
		return err
	}
	return nil
}

// Start recovers unfinished jobs, then starts the workers and the stuck job monitor.
func (r *Runner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckJobMonitor()

	return nil
}

// Stop cancels running jobs and waits for the workers to exit.
// Jobs interrupted by Stop stay in the processing state and are picked up
// again by Recover on the next start.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.wg.Wait()
		r.queue.Close()
	})
}

// Recover requeues pending jobs and resets jobs left in the processing state.
func (r *Runner) Recover() error {
	ctx := r.ctx

	pending, err := r.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}

	for _, rec := range processing {
		if err := r.store.UpdateJobStatus(ctx, rec.ID, StatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing job status",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}

	return nil
}

// requeue rebuilds rec and puts it back on the queue. Records that cannot be
// rebuilt are marked failed.
func (r *Runner) requeue(ctx context.Context, rec *Record) {
	job, err := r.rebuilder.Rebuild(rec)
	if err != nil {
		r.logger.Error("failed to rebuild job",
			"job_id", rec.ID,
			"job_type", rec.Type,
			"error", err)
		if updateErr := r.store.UpdateJobStatus(ctx, rec.ID, StatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark job as failed", "job_id", rec.ID, "error", updateErr)
		}
		return
	}

	if err := r.queue.Enqueue(job); err != nil {
		r.logger.Error("failed to requeue job",
			"job_id", rec.ID,
			"job_type", rec.Type,
			"error", err)
	}
}

// worker processes jobs from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)
	jobs := r.queue.Channel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-jobs:
			if !ok {
				r.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processJob(job, id)
		}
	}
}

// processJob handles execution of a single job
func (r *Runner) processJob(job Job, workerID int) {
	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)
	ctx := logger.WithLogger(r.ctx, log)
	// Status writes must land even while the runner is shutting down.
	statusCtx := context.WithoutCancel(ctx)

	claimed, err := r.store.ClaimJob(statusCtx, job.ID())
	if err != nil {
		log.Error("failed to claim job", "error", err)
		return
	}
	if !claimed {
		log.Info("job already claimed or finished, skipping")
		return
	}

	r.setRunning(job.ID(), true)
	defer r.setRunning(job.ID(), false)

	log.Info("processing job")
	start := time.Now()

	err = job.Execute(ctx)
	switch {
	case err != nil && errors.Is(r.ctx.Err(), context.Canceled):
		log.Warn("job interrupted by shutdown", "error", err)

	case err != nil:
		if updateErr := r.store.UpdateJobStatus(statusCtx, job.ID(), StatusFailed, redact.Error(err)); updateErr != nil {
			log.Error("failed to update job status to failed", "error", updateErr)
		}
		r.errHandler(job, err)

	default:
		log.Info("job completed successfully", "duration", time.Since(start).String())
		if updateErr := r.store.UpdateJobStatus(statusCtx, job.ID(), StatusCompleted, ""); updateErr != nil {
			log.Error("failed to update job status to completed", "error", updateErr)
		}
	}
}

// stuckJobMonitor periodically resets jobs that have been processing for too long
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			stuck, err := r.store.GetProcessingJobs(r.ctx, r.config.StuckJobAge)
			if err != nil {
				r.logger.Error("failed to check for stuck jobs", "error", err)
				continue
			}
			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck jobs", "count", len(stuck))
			for _, rec := range stuck {
				if r.isRunning(rec.ID) {
					continue
				}
				if err := r.store.UpdateJobStatus(r.ctx, rec.ID, StatusPending,
					"reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck job status",
						"job_id", rec.ID,
						"job_type", rec.Type,
						"error", err)
					continue
				}
				r.requeue(r.ctx, rec)
			}
		}
	}
}

func (r *Runner) setRunning(id uuid.UUID, running bool) {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()
	if running {
		r.running[id] = struct{}{}
	} else {
		delete(r.running, id)
	}
}

func (r *Runner) isRunning(id uuid.UUID) bool {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()
	_, ok := r.running[id]
	return ok
}
