package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvPoolSize overrides the dispatch pool size.
const EnvPoolSize = "WORKER_POOL_SIZE"

// DefaultPoolSize is the number of assets processed concurrently when
// WORKER_POOL_SIZE is unset.
const DefaultPoolSize = 10

// PoolSize returns the dispatch pool size: WORKER_POOL_SIZE when it is a
// positive integer, otherwise DefaultPoolSize. The limit parameter caps the
// result. Use 0 for no limit.
func PoolSize(limit int) int {
	size := DefaultPoolSize
	if override := os.Getenv(EnvPoolSize); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			size = count
		}
	}
	if limit > 0 && size > limit {
		size = limit
	}
	return size
}

// ForCPU returns the number of CPU-bound tasks the container can run in
// parallel (1 per CPU). It respects container CPU limits via GOMAXPROCS.
// The limit parameter caps the result. Use 0 for no limit.
func ForCPU(limit int) int {
	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	workers := runtime.GOMAXPROCS(0)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}
