package worker

// Config contains worker configuration
type Config struct {
	// CheckpointInterval is the line-index cadence at which workers
	// persist the checkpoint (every N lines).
	CheckpointInterval int64

	// ResumeFrom is the checkpoint the run started from; boundaries at
	// or below it are not re-persisted.
	ResumeFrom int64
}
