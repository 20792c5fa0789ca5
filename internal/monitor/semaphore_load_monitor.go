package monitor

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// SemaphoreLoadMonitor bounds concurrent transcription jobs with a weighted
// semaphore and derives health from the fraction of slots in use.
type SemaphoreLoadMonitor struct {
	sem       *semaphore.Weighted
	maxJobs   int64
	activeCnt atomic.Int64
	threshold float64 // 0.0 - 1.0
}

// NewSemaphoreLoadMonitor allows up to maxConcurrency simultaneous jobs and
// reports unhealthy once more than healthThreshold (0.0-1.0) of the slots
// are taken.
func NewSemaphoreLoadMonitor(maxConcurrency int64, healthThreshold float64) *SemaphoreLoadMonitor {
	if healthThreshold < 0.0 {
		healthThreshold = 0.0
	}
	if healthThreshold > 1.0 {
		healthThreshold = 1.0
	}

	return &SemaphoreLoadMonitor{
		sem:       semaphore.NewWeighted(maxConcurrency),
		maxJobs:   maxConcurrency,
		threshold: healthThreshold,
	}
}

func (m *SemaphoreLoadMonitor) GetMetrics() LoadMetrics {
	active := m.activeCnt.Load()
	loadPct := 0.0
	if m.maxJobs > 0 {
		loadPct = float64(active) / float64(m.maxJobs) * 100.0
	}

	return LoadMetrics{
		ActiveJobs:     active,
		MaxJobs:        m.maxJobs,
		LoadPercentage: loadPct,
	}
}

func (m *SemaphoreLoadMonitor) IsHealthy() bool {
	return m.GetMetrics().LoadPercentage/100.0 <= m.threshold
}

func (m *SemaphoreLoadMonitor) TryAcquire() bool {
	if m.sem.TryAcquire(1) {
		m.activeCnt.Add(1)
		return true
	}
	return false
}

func (m *SemaphoreLoadMonitor) Release() {
	m.activeCnt.Add(-1)
	m.sem.Release(1)
}

var _ LoadMonitor = (*SemaphoreLoadMonitor)(nil)
