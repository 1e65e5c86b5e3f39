package worker

import (
	"strings"
	"time"

	"mnemoscan/internal/checkpoint"
	"mnemoscan/internal/metrics"
	"mnemoscan/internal/progress"
	"mnemoscan/internal/sink"
	"mnemoscan/internal/source"
	"mnemoscan/internal/validate"

	"go.uber.org/zap"
)

// LineProcessor handles individual lines. A returned error is fatal
// to the whole run; recoverable per-line conditions are logged and
// swallowed here.
type LineProcessor struct {
	config     Config
	predicate  validate.Predicate
	out        *sink.Sink
	checkpoint checkpoint.Store
	tracker    *progress.Tracker
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// Process handles a single line
func (p *LineProcessor) Process(line source.Line) error {
	if line.Err != nil {
		// A line that cannot be decoded is skipped, not fatal.
		p.logger.Warn("Skipping unreadable line",
			zap.Int64("index", line.Index),
			zap.Error(line.Err),
		)
		p.tracker.AddReadError()
		p.tracker.Observe(line.Index)
		p.metrics.IncReadError()
		return nil
	}

	trimmed := strings.TrimSpace(line.Text)
	if trimmed == "" {
		// Blank lines advance the resume position but are not counted
		// as processed.
		p.tracker.AddSkipped()
		p.tracker.Observe(line.Index)
		p.metrics.IncSkipped()
		return nil
	}

	startTime := time.Now()

	p.tracker.AddProcessed(line.Index)
	p.metrics.SetCurrentIndex(p.tracker.HighWater())

	if p.predicate(trimmed) {
		written, err := p.out.Write(line.Text)
		if err != nil {
			return err
		}
		if written {
			p.tracker.AddValid()
			p.metrics.IncValid()
		} else {
			p.logger.Debug("Dropping duplicate line", zap.Int64("index", line.Index))
			p.metrics.IncDuplicate()
		}
	} else {
		p.metrics.IncInvalid()
	}

	p.metrics.ObserveLineDuration(time.Since(startTime))

	if p.atCheckpointBoundary(line.Index) {
		if err := p.checkpoint.Save(p.tracker.HighWater()); err != nil {
			return err
		}
		p.metrics.IncCheckpointSave()
		p.tracker.Offer("processing")
	}

	return nil
}

// atCheckpointBoundary reports whether this index triggers a
// checkpoint persist. Boundaries at or below the resume point were
// already covered by the previous run.
func (p *LineProcessor) atCheckpointBoundary(index int64) bool {
	return index > p.config.ResumeFrom && index%p.config.CheckpointInterval == 0
}
