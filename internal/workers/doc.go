/*
Package workers sizes the dispatch worker pool.

The pool size is the number of assets processed concurrently. It defaults to
DefaultPoolSize and can be overridden with the WORKER_POOL_SIZE environment
variable:

	size := workers.PoolSize(0)
	pool := dispatch.NewLocalPool(proc, size)

Each video in a local pool runs its own ffmpeg encode, which is CPU-bound.
ForCPU reports how many of those the container can run in parallel, using
GOMAXPROCS rather than runtime.NumCPU so that cgroup CPU limits are honoured:

	if size > workers.ForCPU(0) {
		logging.Warn("pool size %d exceeds available CPUs", size)
	}
*/
package workers
