// Package memory controls Go heap usage for a service that shares its
// container with ffmpeg child processes.
//
// # Configuration
//
// Go does not read the cgroup memory limit, so [Configure] sets GOMEMLIMIT
// from MEMORY_LIMIT (usually injected by the Kubernetes Downward API) times
// MEMORY_RATIO. An explicit GOMEMLIMIT always wins. The default ratio is
// lower than for a pure Go service because ffmpeg is outside the Go heap
// but inside the same limit:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.5"
//
// # Backpressure
//
// A [Monitor] samples heap usage and pauses dispatch of new assets once
// usage crosses the pause mark, resuming below the resume mark. Running
// assets are never interrupted. The local worker pool calls [Monitor.Wait]
// after acquiring a slot:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//	pool := dispatch.NewLocalPool(proc, size).WithGate(monitor)
package memory
