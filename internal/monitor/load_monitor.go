package monitor

// LoadMetrics is a snapshot of transcription load.
type LoadMetrics struct {
	ActiveJobs     int64
	MaxJobs        int64
	LoadPercentage float64
}

// LoadMonitor tracks how many transcription jobs are in flight and whether
// the service should keep accepting uploads. Implementations decide how load
// is bounded (semaphore, queue, ...).
type LoadMonitor interface {
	GetMetrics() LoadMetrics

	// IsHealthy reports whether current load is below the health threshold.
	IsHealthy() bool

	// TryAcquire claims a job slot without blocking. The caller MUST call
	// Release when the job completes.
	TryAcquire() bool

	Release()
}
