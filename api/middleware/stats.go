package middleware

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/stats"
	lru "github.com/hashicorp/golang-lru"
	"gopkg.in/macaron.v1"
)

type pathStats struct {
	latency  *stats.TimeDistribution
	size     *stats.Distribution
	statuses *lru.Cache // status code -> *stats.Counter32
}

// requestStats keeps metrics for the most recently requested paths. Paths
// embed metric names, so the set is bounded and evicted paths drop their
// metrics from the registry.
type requestStats struct {
	paths *lru.Cache
}

func (r *requestStats) get(path string) *pathStats {
	if p, ok := r.paths.Get(path); ok {
		return p.(*pathStats)
	}
	statuses, _ := lru.NewWithEvict(16, func(key, value interface{}) {
		stats.Remove(fmt.Sprintf("api.request.%s.status.%d", path, key.(int)))
	})
	p := &pathStats{
		// metric api.request.%s is the latency of each request by request path.
		latency: stats.NewTimeDistribution(fmt.Sprintf("api.request.%s", path), time.Millisecond),
		// metric api.request.%s.size is the size of each response by request path
		size:     stats.NewDistribution(fmt.Sprintf("api.request.%s.size", path), decay.OneMinute()),
		statuses: statuses,
	}
	// a concurrent request for the same path may have won the race
	if prev, ok, _ := r.paths.PeekOrAdd(path, p); ok {
		return prev.(*pathStats)
	}
	return p
}

func (r *requestStats) PathStatusCount(path string, status int) {
	p := r.get(path)
	c, ok := p.statuses.Get(status)
	if !ok {
		// metric api.request.%s.status.%d is the count of the number of responses for each request path, status code combination.
		// eg. `api.request.stats.status.200` and `api.request.stats_foo_digest.status.404`
		c = stats.NewCounter32(fmt.Sprintf("api.request.%s.status.%d", path, status))
		p.statuses.Add(status, c)
	}
	c.(*stats.Counter32).Inc()
}

func (r *requestStats) PathLatency(path string, dur time.Duration) {
	r.get(path).latency.AddDuration(dur)
}

func (r *requestStats) PathSize(path string, size int) {
	r.get(path).size.Add(float64(size))
}

// RequestStats returns a middleware that tracks request metrics for up to
// maxPaths distinct paths.
func RequestStats(maxPaths int) macaron.Handler {
	paths, err := lru.NewWithEvict(maxPaths, func(key, value interface{}) {
		name := key.(string)
		stats.Remove(fmt.Sprintf("api.request.%s", name))
		stats.Remove(fmt.Sprintf("api.request.%s.size", name))
		value.(*pathStats).statuses.Purge()
	})
	if err != nil {
		panic(err)
	}
	stats := &requestStats{paths: paths}

	return func(ctx *macaron.Context) {
		start := time.Now()
		rw := ctx.Resp.(macaron.ResponseWriter)
		// call next handler. This will return after all handlers
		// have completed and the request has been sent.
		ctx.Next()
		status := rw.Status()
		path := pathSlug(ctx.Req.URL.Path)
		stats.PathStatusCount(path, status)
		stats.PathLatency(path, time.Since(start))
		// only record the request size if the request succeeded.
		if status < 300 {
			stats.PathSize(path, rw.Size())
		}
	}
}

func pathSlug(p string) string {
	slug := strings.TrimPrefix(path.Clean(p), "/")
	if slug == "" {
		slug = "root"
	}
	return strings.Replace(slug, "/", "_", -1)
}
