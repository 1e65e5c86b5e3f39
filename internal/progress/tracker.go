package progress

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is one progress report. It mirrors what interactive
// front-ends consume: counters, throughput and a formatted ETA.
type Snapshot struct {
	Processed    int64
	Valid        int64
	Skipped      int64
	ReadErrors   int64
	Total        int64
	CurrentIndex int64
	Percent      float64
	Speed        float64 // lines per second
	ETA          string
	Status       string
}

// Tracker aggregates run counters and derives throughput and ETA.
// Counters are atomic; workers update them per line without locking.
// Emission on the updates channel is throttled so consumers are not
// flooded.
type Tracker struct {
	start time.Time

	total      atomic.Int64
	processed  atomic.Int64
	valid      atomic.Int64
	skipped    atomic.Int64
	readErrors atomic.Int64
	highWater  atomic.Int64

	mu       sync.Mutex
	lastEmit time.Time
	interval time.Duration
	updates  chan Snapshot
}

// NewTracker creates a tracker emitting at most one snapshot per
// interval. The line total is set once the counting pass finishes.
func NewTracker(interval time.Duration) *Tracker {
	t := &Tracker{
		start:    time.Now(),
		interval: interval,
		updates:  make(chan Snapshot, 8),
	}
	t.highWater.Store(-1)
	return t
}

// SetTotal records the total number of input lines.
func (t *Tracker) SetTotal(total int64) {
	t.total.Store(total)
}

// Total returns the total number of input lines.
func (t *Tracker) Total() int64 {
	return t.total.Load()
}

// Updates returns the snapshot channel consumed by front-ends.
func (t *Tracker) Updates() <-chan Snapshot {
	return t.updates
}

// AddProcessed counts one processed line and raises the high-water
// index.
func (t *Tracker) AddProcessed(index int64) {
	t.processed.Add(1)
	t.Observe(index)
}

// Observe raises the high-water mark to index. The stored value only
// ever increases: workers finish out of order, and the checkpoint
// derived from this value must never regress.
func (t *Tracker) Observe(index int64) {
	for {
		cur := t.highWater.Load()
		if index <= cur {
			return
		}
		if t.highWater.CompareAndSwap(cur, index) {
			return
		}
	}
}

// AddValid counts one line accepted by the predicate.
func (t *Tracker) AddValid() {
	t.valid.Add(1)
}

// AddSkipped counts one blank line.
func (t *Tracker) AddSkipped() {
	t.skipped.Add(1)
}

// AddReadError counts one undecodable line.
func (t *Tracker) AddReadError() {
	t.readErrors.Add(1)
}

// HighWater returns the maximum index observed so far, or -1 before
// any line was processed.
func (t *Tracker) HighWater() int64 {
	return t.highWater.Load()
}

// Valid returns the accepted line count.
func (t *Tracker) Valid() int64 {
	return t.valid.Load()
}

// Processed returns the processed line count.
func (t *Tracker) Processed() int64 {
	return t.processed.Load()
}

// Snapshot builds a point-in-time report.
func (t *Tracker) Snapshot(status string) Snapshot {
	processed := t.processed.Load()
	index := t.highWater.Load()
	if index < 0 {
		index = 0
	}

	elapsed := time.Since(t.start)
	total := t.total.Load()

	s := Snapshot{
		Processed:    processed,
		Valid:        t.valid.Load(),
		Skipped:      t.skipped.Load(),
		ReadErrors:   t.readErrors.Load(),
		Total:        total,
		CurrentIndex: index,
		Speed:        speed(processed, elapsed),
		Status:       status,
	}

	if total > 0 {
		s.Percent = math.Min(100, float64(index)*100/float64(total))
	}
	s.ETA = estimateETA(s.Speed, total-index)

	return s
}

// Offer emits a snapshot if the throttle window has elapsed. Safe to
// call from many workers; losers return immediately.
func (t *Tracker) Offer(status string) {
	t.mu.Lock()
	if time.Since(t.lastEmit) < t.interval {
		t.mu.Unlock()
		return
	}
	t.lastEmit = time.Now()
	t.mu.Unlock()

	t.send(t.Snapshot(status))
}

// Emit sends a snapshot regardless of the throttle, for run start and
// terminal states.
func (t *Tracker) Emit(status string) {
	t.send(t.Snapshot(status))
}

// Elapsed returns the wall time since the run started.
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *Tracker) send(s Snapshot) {
	select {
	case t.updates <- s:
	default:
		// Slow consumers drop updates rather than stall workers.
	}
}

func speed(processed int64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return float64(processed)
	}
	return float64(processed) / secs
}

func estimateETA(linesPerSec float64, remaining int64) string {
	if remaining <= 0 {
		return FormatDuration(0)
	}
	if linesPerSec < 0.01 {
		return "calculating"
	}

	secs := float64(remaining) / linesPerSec
	return FormatDuration(time.Duration(secs * float64(time.Second)))
}

// FormatDuration renders a duration as MM:SS, or HH:MM:SS when the
// hour component is non-zero.
func FormatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	if total < 0 {
		total = 0
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
