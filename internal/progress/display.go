package progress

import (
	"fmt"
	"os"
	"time"
)

// Display renders progress snapshots on the terminal, one line,
// redrawn in place.
type Display struct {
	tracker  *Tracker
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewDisplay creates a new progress display
func NewDisplay(tracker *Tracker, interval time.Duration) *Display {
	return &Display{
		tracker:  tracker,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start starts the progress display
func (d *Display) Start() {
	go d.displayLoop()
}

// Stop stops the progress display and waits for the final redraw.
func (d *Display) Stop() {
	close(d.stopCh)
	<-d.doneCh
}

func (d *Display) displayLoop() {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.render(d.tracker.Snapshot("processing"))
		case <-d.stopCh:
			fmt.Println()
			return
		}
	}
}

func (d *Display) render(s Snapshot) {
	// Clear the previous line and redraw.
	fmt.Print("\r\x1b[K")
	fmt.Printf("[%3.0f%%] %d/%d lines, %d valid, %.0f lines/s, ETA: %s",
		s.Percent, s.CurrentIndex, s.Total, s.Valid, s.Speed, s.ETA)
}

// IsTerminalSupported checks if the terminal supports progress display
func IsTerminalSupported() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
