package api

import (
	"net/http"
	"sort"

	"github.com/grafana/decaystats/api/middleware"
	"github.com/grafana/decaystats/api/models"
	"github.com/grafana/decaystats/api/response"
	"github.com/grafana/decaystats/errors"
	"github.com/grafana/decaystats/stats"
)

func (s *Server) appStatus(ctx *middleware.Context) {
	ctx.PlainText(200, []byte("OK"))
}

func (s *Server) listStats(ctx *middleware.Context) {
	response.Write(ctx, response.NewJSON(http.StatusOK, models.StatsList(stats.Snapshots())))
}

func lookup(name string) (stats.GraphiteMetric, error) {
	metric, ok := stats.Get(name)
	if !ok {
		return nil, errors.NewNotFound("no such metric: " + name)
	}
	return metric, nil
}

func (s *Server) getStat(ctx *middleware.Context, req models.StatsGet) {
	name := ctx.Params(":name")
	metric, err := lookup(name)
	if err != nil {
		response.Write(ctx, response.WrapError(err))
		return
	}
	snap, ok := metric.(stats.Snapshotter)
	if !ok {
		response.Write(ctx, response.Errorf(http.StatusNotFound, "metric %s has no snapshot", name))
		return
	}
	stat := models.Stat{
		Name:     name,
		Snapshot: snap.StatsSnapshot(),
	}
	if stat.Snapshot == nil {
		response.Write(ctx, response.Errorf(http.StatusNotFound, "metric %s has nothing to show yet", name))
		return
	}

	if len(req.Quantiles) > 0 {
		src, ok := metric.(stats.DigestSource)
		if !ok {
			response.Write(ctx, response.Errorf(http.StatusBadRequest, "metric %s does not track quantiles", name))
			return
		}
		qs := append([]float64(nil), req.Quantiles...)
		sort.Float64s(qs)
		values, err := src.Digest().ValuesAt(qs...)
		if err != nil {
			response.Write(ctx, response.WrapError(err))
			return
		}
		for i, q := range qs {
			stat.Quantiles = append(stat.Quantiles, models.Quantile{Quantile: q, Value: values[i]})
		}
	}
	response.Write(ctx, response.NewJSON(http.StatusOK, stat))
}

// getDigest exports the merged digest of a metric as a digestio stream.
// The values are in the metric's native unit: nanoseconds for time distributions.
func (s *Server) getDigest(ctx *middleware.Context) {
	name := ctx.Params(":name")
	metric, err := lookup(name)
	if err != nil {
		response.Write(ctx, response.WrapError(err))
		return
	}
	src, ok := metric.(stats.DigestSource)
	if !ok {
		response.Write(ctx, response.Errorf(http.StatusBadRequest, "metric %s has no digest", name))
		return
	}

	if err := s.digestSem.Acquire(ctx.Req.Context(), 1); err != nil {
		response.Write(ctx, response.RequestCanceledErr)
		return
	}
	defer s.digestSem.Release(1)
	digestsInFlight.Inc()
	defer digestsInFlight.Dec()

	response.Write(ctx, response.NewDigest(http.StatusOK, src.Digest()))
}

func (s *Server) prometheusMetrics(ctx *middleware.Context) {
	s.metrics.ServeHTTP(ctx.Resp, ctx.Req.Request)
}
