package checkpoint

// Store defines the interface for checkpoint persistence. The
// checkpoint is a single index: every line below it has been handled
// by a previous run, so resume skips everything before it.
type Store interface {
	// Load returns the saved index, or 0 when no usable checkpoint
	// exists. A corrupt checkpoint is never an error, it only resets
	// progress to the beginning.
	Load() (int64, error)

	// Save persists the index. Within a run the stored value never
	// decreases; a stale save is silently dropped.
	Save(index int64) error

	// Clear removes the checkpoint, marking the run as finished.
	Clear() error
}
