package api

import (
	"github.com/go-macaron/binding"
	"github.com/grafana/decaystats/api/middleware"
	"github.com/grafana/decaystats/api/models"
	"github.com/raintank/gziper"
	"gopkg.in/macaron.v1"
)

func (s *Server) RegisterRoutes() {
	r := s.Macaron
	r.Use(middleware.Logger(logMinDur, logHeaders))
	if useGzip {
		r.Use(gziper.Gziper())
	}
	r.Use(middleware.RequestStats(maxRoutes))
	r.Use(macaron.Renderer())
	r.Use(middleware.GetContext())
	r.Use(middleware.CorsHandler())

	bind := binding.Bind

	r.Get("/", s.appStatus)
	r.Get("/debug/pprof/block", blockHandler)
	r.Get("/debug/pprof/mutex", mutexHandler)

	r.Get("/stats", s.listStats)
	r.Combo("/stats/:name", bind(models.StatsGet{})).Get(s.getStat).Post(s.getStat)
	r.Get("/stats/:name/digest", s.getDigest)
	r.Get("/metrics", s.prometheusMetrics)
}
