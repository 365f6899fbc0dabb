// Package metrics exposes counters describing scheduler activity: how
// many tracker tasks were attempted, how many succeeded, and how many
// failed. It mirrors the shape of torrent/session_metrics.go in the
// teacher repo, scaled down to the handful of counters a stateless scrape
// call can usefully report.
package metrics

import "github.com/rcrowley/go-metrics"

// Registry holds the counters for one process. Callers that want to
// inspect or export them can reach the underlying metrics.Registry via
// Raw.
type Registry struct {
	registry metrics.Registry

	TasksAttempted metrics.Counter
	TasksSucceeded metrics.Counter
	TasksFailed    metrics.Counter
}

// Default is the package-level registry the scheduler reports into. It is
// a var, not a const, so tests can snapshot and reset it between cases.
var Default = New()

// New returns a fresh, independent Registry.
func New() *Registry {
	r := metrics.NewRegistry()
	return &Registry{
		registry:       r,
		TasksAttempted: metrics.NewRegisteredCounter("scrape.tasks_attempted", r),
		TasksSucceeded: metrics.NewRegisteredCounter("scrape.tasks_succeeded", r),
		TasksFailed:    metrics.NewRegisteredCounter("scrape.tasks_failed", r),
	}
}

// Raw returns the underlying metrics.Registry, for callers that want to
// wire it into a reporter (metrics.WriteJSON, a push exporter, etc).
func (r *Registry) Raw() metrics.Registry { return r.registry }

// Reset zeroes every counter. Intended for use between test cases that
// share Default.
func (r *Registry) Reset() {
	r.TasksAttempted.Clear()
	r.TasksSucceeded.Clear()
	r.TasksFailed.Clear()
}
