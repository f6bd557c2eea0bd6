// Package api serves the registered statistics over http: json snapshots,
// digest exports and a prometheus endpoint.
package api

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	_ "net/http/pprof"

	"github.com/grafana/decaystats/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"gopkg.in/macaron.v1"
)

var (
	// metric api.digest_exports.in_flight is the number of digest exports being rendered right now
	digestsInFlight = stats.NewGauge32("api.digest_exports.in_flight")
)

type Server struct {
	Addr     string
	SSL      bool
	certFile string
	keyFile  string
	Macaron  *macaron.Macaron

	digestSem *semaphore.Weighted
	metrics   http.Handler
	shutdown  chan struct{}
}

func NewServer() (*Server, error) {
	m := macaron.New()
	m.Use(macaron.Recovery())
	// route pprof to where it belongs
	m.Use(func(ctx *macaron.Context) {
		if strings.HasPrefix(ctx.Req.URL.Path, "/debug/pprof/") &&
			ctx.Req.URL.Path != "/debug/pprof/block" && ctx.Req.URL.Path != "/debug/pprof/mutex" {
			http.DefaultServeMux.ServeHTTP(ctx.Resp, ctx.Req.Request)
		}
	})

	reg := prometheus.NewRegistry()
	if err := reg.Register(stats.NewPrometheusCollector(promNamespace)); err != nil {
		return nil, err
	}

	return &Server{
		Addr:      Addr,
		SSL:       UseSSL,
		certFile:  certFile,
		keyFile:   keyFile,
		Macaron:   m,
		digestSem: semaphore.NewWeighted(int64(maxConcurrentDigests)),
		metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		shutdown:  make(chan struct{}),
	}, nil
}

// Run serves until Stop is called.
func (s *Server) Run() {
	s.RegisterRoutes()
	proto := "http"
	if s.SSL {
		proto = "https"
	}
	log.Infof("API Listening on: %v://%s/", proto, s.Addr)

	// define our own listener so we can call Close on it
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		log.Fatalf("API failed to listen on %s, %s", s.Addr, err.Error())
	}
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Macaron,
	}
	go s.handleShutdown(srv)
	if s.SSL {
		cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
		if err != nil {
			log.Fatalf("API Failed to start server: %v", err)
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"http/1.1"},
		}
		tlsListener := tls.NewListener(tcpKeepAliveListener{l.(*net.TCPListener)}, srv.TLSConfig)
		err = srv.Serve(tlsListener)
	} else {
		err = srv.Serve(tcpKeepAliveListener{l.(*net.TCPListener)})
	}

	if err != nil && err != http.ErrServerClosed {
		log.Errorf("API %s", err.Error())
	}
}

func (s *Server) Stop() {
	close(s.shutdown)
}

func (s *Server) handleShutdown(srv *http.Server) {
	<-s.shutdown
	log.Info("API shutdown started.")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("API shutdown did not complete: %s", err)
	}
}

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
