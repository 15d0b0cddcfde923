package memory

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-deriver/internal/logging"
	"media-deriver/internal/metrics"
)

// Config holds memory monitor configuration
type Config struct {
	// LimitBytes is the limit usage is measured against (0 = use GOMEMLIMIT)
	LimitBytes int64

	// ResumeMark is the fraction of the limit below which a paused monitor
	// resumes dispatch (0.0-1.0)
	ResumeMark float64

	// PauseMark is the fraction of the limit at which dispatch pauses (0.0-1.0)
	PauseMark float64

	// CheckInterval is how often to sample heap usage
	CheckInterval time.Duration
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() Config {
	return Config{
		ResumeMark:    0.7,
		PauseMark:     0.85,
		CheckInterval: 5 * time.Second,
	}
}

// Monitor samples heap usage and holds back new work while it is above the
// pause mark. It implements the gate the local worker pool waits on before
// starting an asset.
type Monitor struct {
	config Config
	limit  int64
	sample func() uint64

	stopOnce sync.Once
	stopChan chan struct{}

	mu         sync.Mutex
	current    uint64
	paused     bool
	resumeChan chan struct{}
}

// NewMonitor creates a monitor. With no limit configured or available from
// GOMEMLIMIT, the monitor never pauses.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, backpressure disabled")
	} else {
		logging.Info("Memory monitor: pausing dispatch above %.0f%% of %s", config.PauseMark*100, formatBytes(limit))
	}

	return &Monitor{
		config:     config,
		limit:      limit,
		sample:     heapAlloc,
		stopChan:   make(chan struct{}),
		resumeChan: make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins sampling memory usage
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.monitorLoop()
}

// Stop stops sampling and releases any waiters.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.sample()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc
	if m.limit == 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.PauseMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing dispatch", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < m.config.ResumeMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming dispatch", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumeChan)
		m.resumeChan = make(chan struct{})
	}
}

// Wait blocks while dispatch is paused. It returns ctx.Err() if ctx ends
// first and nil once dispatch may proceed or the monitor is stopped.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resume := m.resumeChan
	m.mu.Unlock()

	logging.Debug("Dispatch waiting for memory pressure to ease")
	select {
	case <-resume:
		return nil
	case <-m.stopChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPaused reports whether dispatch is currently held back
func (m *Monitor) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// GetStats returns the last sampled heap allocation, the limit, and their ratio
func (m *Monitor) GetStats() (current, limit int64, usage float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current > math.MaxInt64 {
		current = math.MaxInt64
	} else {
		current = int64(m.current)
	}
	if m.limit > 0 {
		usage = float64(m.current) / float64(m.limit)
	}
	return current, m.limit, usage
}
