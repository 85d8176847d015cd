/*
Package metrics provides Prometheus instrumentation for taskflow.

Components accept a *Registry and record into it; DefaultRegistry is
backed by prometheus.DefaultRegisterer. Use a private registry to avoid
collisions when several dispatchers live in one process:

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)
	d := dispatch.New(dispatch.Config{MaxWorkers: 4, Metrics: m})

All metrics live under the "taskflow" namespace with per-component
subsystems (dispatch, event, scheduler).
*/
package metrics
