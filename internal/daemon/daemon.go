// Package daemon runs the background job loop: it enforces single-instance
// execution with a file lock, recovers orphaned jobs at startup, claims
// pending jobs bounded by the concurrency cap, and fails in-flight jobs on
// graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"revoice/internal/config"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
)

// JobRunner executes one pipeline run. Satisfied by *pipeline.Runner.
type JobRunner interface {
	Run(ctx context.Context, jobID string, startFrom int) error
}

// Daemon owns the poll loop and the process lock.
type Daemon struct {
	cfg    *config.Config
	store  *jobs.Store
	runner JobRunner
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	pollInterval time.Duration
	errorRetry   time.Duration
	slots        chan struct{}

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New constructs a daemon. The lock file lives next to the database under the
// log directory.
func New(cfg *config.Config, store *jobs.Store, runner JobRunner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil {
		return nil, errors.New("daemon requires config, store, and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	errorRetry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorRetry <= 0 {
		errorRetry = 10 * time.Second
	}
	maxJobs := cfg.Workflow.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 2
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "revoiced.lock")
	return &Daemon{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
		pollInterval: pollInterval,
		errorRetry:   errorRetry,
		slots:        make(chan struct{}, maxJobs),
		inFlight:     make(map[string]struct{}),
	}, nil
}

// Start acquires the instance lock, recovers orphans from a prior crash, and
// launches the poll loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another revoice daemon instance is already running")
	}

	if _, err := pipeline.RecoverOrphans(ctx, d.store, d.logger); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover orphans: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go d.pollLoop(loopCtx)

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent_jobs", cap(d.slots)))
	return nil
}

// Stop cancels the loop, waits for workers, fails anything still in flight so
// processing never survives the daemon, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if _, err := pipeline.FailInFlight(context.Background(), d.store, d.logger); err != nil {
		d.logger.Warn("failed to mark in-flight jobs", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Running reports whether the poll loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) pollLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.claimJobs(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.claimJobs(ctx)
		}
	}
}

// claimJobs starts workers for pending jobs until the queue is drained or all
// slots are taken.
func (d *Daemon) claimJobs(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d.slots <- struct{}{}:
		default:
			return
		}

		job, err := d.store.NextPending(ctx)
		if err != nil {
			<-d.slots
			if !errors.Is(err, context.Canceled) {
				d.logger.Error("failed to poll queue", logging.Error(err))
				// Hold the loop so a broken store is not hammered at the
				// poll cadence.
				select {
				case <-ctx.Done():
				case <-time.After(d.errorRetry):
				}
			}
			return
		}
		if job == nil || !d.markInFlight(job.ID) {
			<-d.slots
			return
		}

		d.wg.Add(1)
		go d.runJob(ctx, job)
	}
}

func (d *Daemon) runJob(ctx context.Context, job *jobs.Job) {
	defer func() {
		d.clearInFlight(job.ID)
		<-d.slots
		d.wg.Done()
	}()

	startFrom := job.StartStage
	if startFrom < jobs.StageCleanup || startFrom > jobs.StageCount {
		startFrom = jobs.StageCleanup
	}
	if err := d.runner.Run(ctx, job.ID, startFrom); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("job run failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func (d *Daemon) markInFlight(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.inFlight[id]; exists {
		return false
	}
	d.inFlight[id] = struct{}{}
	return true
}

func (d *Daemon) clearInFlight(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, id)
}
