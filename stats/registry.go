package stats

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/grafana/decaystats/decay"
)

var errFmtMetricExists = "fatal: metric %q already exists as type %T"

var registry = NewRegistry()

// GraphiteMetric is anything that can report itself to graphite
type GraphiteMetric interface {
	// Report the measurements in graphite format and reset measurements for the next interval if needed
	ReportGraphite(prefix []byte, buf []byte, now time.Time) []byte
}

// Snapshotter is implemented by metrics that can describe their current
// state as a json-friendly value.
type Snapshotter interface {
	StatsSnapshot() interface{}
}

// DigestSource is implemented by metrics backed by a decayed digest.
type DigestSource interface {
	Digest() *decay.Digest
}

// Registry tracks metrics and reporters
type Registry struct {
	sync.Mutex
	// here we use just the metric name as key. it does not include any prefix
	metrics map[string]GraphiteMetric
}

func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]GraphiteMetric),
	}
}

// getOrAdd returns the metric registered under name, or registers metric if
// there is none. Registering a name twice with different types is a
// programming error and panics.
func (r *Registry) getOrAdd(name string, metric GraphiteMetric) GraphiteMetric {
	r.Lock()
	defer r.Unlock()
	if existing, ok := r.metrics[name]; ok {
		if reflect.TypeOf(existing) == reflect.TypeOf(metric) {
			return existing
		}
		panic(fmt.Sprintf(errFmtMetricExists, name, existing))
	}
	r.metrics[name] = metric
	return metric
}

func (r *Registry) list() map[string]GraphiteMetric {
	metrics := make(map[string]GraphiteMetric)
	r.Lock()
	for name, metric := range r.metrics {
		metrics[name] = metric
	}
	r.Unlock()
	return metrics
}

func (r *Registry) get(name string) (GraphiteMetric, bool) {
	r.Lock()
	metric, ok := r.metrics[name]
	r.Unlock()
	return metric, ok
}

func (r *Registry) remove(name string) {
	r.Lock()
	delete(r.metrics, name)
	r.Unlock()
}

func (r *Registry) Clear() {
	r.Lock()
	r.metrics = make(map[string]GraphiteMetric)
	r.Unlock()
}

// Names returns the sorted names of all registered metrics.
func Names() []string {
	metrics := registry.list()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the metric registered under name.
func Get(name string) (GraphiteMetric, bool) {
	return registry.get(name)
}

// Snapshots returns the snapshot of every metric that supports one, by name.
// Metrics with nothing to show yet are left out.
func Snapshots() map[string]interface{} {
	out := make(map[string]interface{})
	for name, metric := range registry.list() {
		if s, ok := metric.(Snapshotter); ok {
			if snap := s.StatsSnapshot(); snap != nil {
				out[name] = snap
			}
		}
	}
	return out
}

// Remove unregisters the metric registered under name, if any.
// Holders of the metric can keep using it, it just won't be reported anymore.
func Remove(name string) {
	registry.remove(name)
}

// Clear removes all metrics from the default registry. Meant for tests.
func Clear() {
	registry.Clear()
}
