package worker

import (
	"context"
	"sync"

	"mnemoscan/internal/checkpoint"
	"mnemoscan/internal/metrics"
	"mnemoscan/internal/progress"
	"mnemoscan/internal/sink"
	"mnemoscan/internal/source"
	"mnemoscan/internal/validate"

	"go.uber.org/zap"
)

// Pool manages a pool of workers
type Pool struct {
	size       int
	config     Config
	predicate  validate.Predicate
	out        *sink.Sink
	checkpoint checkpoint.Store
	tracker    *progress.Tracker
	metrics    *metrics.Collector
	logger     *zap.Logger

	fatal chan error
}

// NewPool creates a new worker pool
func NewPool(
	size int,
	config Config,
	predicate validate.Predicate,
	out *sink.Sink,
	checkpointStore checkpoint.Store,
	tracker *progress.Tracker,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		size:       size,
		config:     config,
		predicate:  predicate,
		out:        out,
		checkpoint: checkpointStore,
		tracker:    tracker,
		metrics:    metricsCollector,
		logger:     logger,
		fatal:      make(chan error, 1),
	}
}

// Start starts the worker pool
func (p *Pool) Start(ctx context.Context, lines <-chan source.Line, wg *sync.WaitGroup) {
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go p.worker(ctx, i, lines, wg)
	}
}

// Fatal delivers the first unrecoverable worker error, if any.
func (p *Pool) Fatal() <-chan error {
	return p.fatal
}

func (p *Pool) worker(ctx context.Context, id int, lines <-chan source.Line, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	processor := &LineProcessor{
		config:     p.config,
		predicate:  p.predicate,
		out:        p.out,
		checkpoint: p.checkpoint,
		tracker:    p.tracker,
		metrics:    p.metrics,
		logger:     logger,
	}

	for {
		// Cancellation is checked between lines; a line already
		// accepted runs to completion.
		select {
		case line, ok := <-lines:
			if !ok {
				logger.Debug("Worker finished - no more lines")
				return
			}

			if err := processor.Process(line); err != nil {
				select {
				case p.fatal <- err:
				default:
				}
				logger.Error("Worker aborting", zap.Error(err))
				return
			}

		case <-ctx.Done():
			logger.Debug("Worker stopped - context cancelled")
			return
		}
	}
}
