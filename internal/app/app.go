package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mnemoscan/internal/checkpoint"
	"mnemoscan/internal/config"
	"mnemoscan/internal/dedup"
	"mnemoscan/internal/metrics"
	"mnemoscan/internal/progress"
	"mnemoscan/internal/sink"
	"mnemoscan/internal/source"
	"mnemoscan/internal/validate"
	"mnemoscan/internal/worker"

	"go.uber.org/zap"
)

// State is the run lifecycle: Idle until Run is called, Running while
// lines are being processed, then exactly one of the terminal states.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// shutdownGrace bounds how long a cancelled run waits for in-flight
// workers to finish their current line.
const shutdownGrace = 5 * time.Second

// progressInterval throttles progress emission.
const progressInterval = 3 * time.Second

// Result summarizes a finished run.
type Result struct {
	State     State
	Total     int64
	Processed int64
	Valid     int64
	Elapsed   time.Duration
}

// Runner coordinates one validation run: checkpoint load, line
// counting, worker dispatch, cancellation and the final flush.
type Runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	predicate validate.Predicate
	metrics   *metrics.Collector

	checkpoint *checkpoint.FileStore
	tracker    *progress.Tracker

	mu    sync.Mutex
	state State
}

// New creates a runner. The predicate is the external validity check
// applied to each trimmed line.
func New(cfg *config.Config, predicate validate.Predicate, collector *metrics.Collector, logger *zap.Logger) (*Runner, error) {
	store, err := checkpoint.NewFileStore(cfg.Processing.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	return &Runner{
		cfg:        cfg,
		logger:     logger,
		predicate:  predicate,
		metrics:    collector,
		checkpoint: store,
		tracker:    progress.NewTracker(progressInterval),
		state:      StateIdle,
	}, nil
}

// Updates returns the progress snapshot channel for front-ends.
func (r *Runner) Updates() <-chan progress.Snapshot {
	return r.tracker.Updates()
}

// Tracker exposes the live progress tracker, e.g. for the terminal
// display.
func (r *Runner) Tracker() *progress.Tracker {
	return r.tracker
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes the validation run. Cancelling ctx triggers a
// cooperative shutdown: dispatch stops, workers finish their current
// line, the sink is flushed and the checkpoint persisted. Run returns
// a nil error for both completion and clean cancellation.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.setState(StateRunning)

	if addr := r.cfg.Processing.MetricsAddr; addr != "" {
		go func() {
			if err := r.metrics.StartServer(addr); err != nil {
				r.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	resume, err := r.checkpoint.Load()
	if err != nil {
		return r.fail(fmt.Errorf("failed to load checkpoint: %w", err))
	}

	total, err := source.Count(r.cfg.Input)
	if err != nil {
		return r.fail(err)
	}
	r.tracker.SetTotal(total)

	r.logger.Info("Starting validation",
		zap.String("input", r.cfg.Input),
		zap.String("output", r.cfg.Output),
		zap.Int64("total_lines", total),
		zap.Int64("checkpoint", resume),
		zap.Int("concurrency", r.cfg.Processing.Concurrency),
	)

	if total == 0 {
		// Nothing to do; an empty input is a successful run.
		if err := r.checkpoint.Clear(); err != nil {
			return r.fail(err)
		}
		return r.complete()
	}

	var index *dedup.Index
	if r.cfg.Dedup.Enabled {
		index, err = dedup.NewIndex(r.cfg.Dedup.Index)
		if err != nil {
			return r.fail(err)
		}
		defer index.Close()
	}

	out, err := sink.New(r.cfg.Output, index)
	if err != nil {
		return r.fail(err)
	}
	defer out.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, srcErr, err := source.Stream(runCtx, r.cfg.Input, resume)
	if err != nil {
		return r.fail(err)
	}

	pool := worker.NewPool(
		r.cfg.Processing.Concurrency,
		worker.Config{
			CheckpointInterval: r.cfg.Processing.CheckpointInterval,
			ResumeFrom:         resume,
		},
		r.predicate, out, r.checkpoint, r.tracker, r.metrics, r.logger,
	)

	var wg sync.WaitGroup
	pool.Start(runCtx, lines, &wg)
	r.tracker.Emit("processing")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		select {
		case err := <-pool.Fatal():
			cancel()
			return r.failPreserving(out, err)
		default:
		}
		// Unblock the source in case workers exited before draining it.
		cancel()
		if err := <-srcErr; err != nil {
			return r.failPreserving(out, err)
		}
		if ctx.Err() != nil {
			return r.cancelled(out)
		}
		return r.completeRun(out)

	case err := <-pool.Fatal():
		cancel()
		waitBounded(done)
		return r.failPreserving(out, err)

	case <-ctx.Done():
		cancel()
		waitBounded(done)
		return r.cancelled(out)
	}
}

// waitBounded waits for workers to drain, giving up after the grace
// period so a stuck predicate cannot block shutdown forever.
func waitBounded(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(shutdownGrace):
	}
}

func (r *Runner) completeRun(out *sink.Sink) (Result, error) {
	if err := out.Flush(); err != nil {
		return r.fail(err)
	}
	if err := r.checkpoint.Clear(); err != nil {
		return r.fail(err)
	}
	return r.complete()
}

func (r *Runner) complete() (Result, error) {
	r.setState(StateCompleted)
	r.tracker.Emit("completed")

	res := r.result(StateCompleted)
	r.logger.Info("Validation complete",
		zap.Int64("processed", res.Processed),
		zap.Int64("valid", res.Valid),
		zap.String("elapsed", progress.FormatDuration(res.Elapsed)),
	)
	return res, nil
}

func (r *Runner) cancelled(out *sink.Sink) (Result, error) {
	if err := out.Flush(); err != nil {
		r.logger.Error("Failed to flush output during shutdown", zap.Error(err))
	}
	if err := r.saveProgress(); err != nil {
		r.logger.Error("Failed to save checkpoint during shutdown", zap.Error(err))
	}

	r.setState(StateCancelled)
	r.tracker.Emit("cancelled")

	res := r.result(StateCancelled)
	r.logger.Info("Validation cancelled",
		zap.Int64("checkpoint", r.tracker.HighWater()),
		zap.Int64("processed", res.Processed),
		zap.Int64("valid", res.Valid),
	)
	return res, nil
}

// failPreserving keeps partial progress on a fatal mid-run error: the
// sink is flushed and the checkpoint saved best-effort, then the
// error propagates.
func (r *Runner) failPreserving(out *sink.Sink, err error) (Result, error) {
	if flushErr := out.Flush(); flushErr != nil {
		r.logger.Error("Failed to flush output after error", zap.Error(flushErr))
	}
	if saveErr := r.saveProgress(); saveErr != nil {
		r.logger.Error("Failed to save checkpoint after error", zap.Error(saveErr))
	}
	return r.fail(err)
}

func (r *Runner) fail(err error) (Result, error) {
	r.setState(StateFailed)
	r.tracker.Emit("failed")
	return r.result(StateFailed), err
}

func (r *Runner) saveProgress() error {
	index := r.tracker.HighWater()
	if index < 0 {
		return nil
	}
	if err := r.checkpoint.Save(index); err != nil {
		return err
	}
	r.metrics.IncCheckpointSave()
	return nil
}

func (r *Runner) result(state State) Result {
	return Result{
		State:     state,
		Total:     r.tracker.Total(),
		Processed: r.tracker.Processed(),
		Valid:     r.tracker.Valid(),
		Elapsed:   r.tracker.Elapsed(),
	}
}
