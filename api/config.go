package api

import (
	"flag"
	"net"
	"time"

	"github.com/grafana/globalconf"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var (
	Addr     string
	UseSSL   bool
	certFile string
	keyFile  string
	useGzip  bool

	logMinDurStr string
	logMinDur    time.Duration
	logHeaders   bool

	maxRoutes            int
	maxConcurrentDigests int
	promNamespace        string
)

func ConfigSetup() {
	apiCfg := flag.NewFlagSet("http", flag.ExitOnError)
	apiCfg.StringVar(&Addr, "listen", ":6070", "http listener address.")
	apiCfg.BoolVar(&UseSSL, "ssl", false, "use HTTPS")
	apiCfg.StringVar(&certFile, "cert-file", "", "SSL certificate file")
	apiCfg.StringVar(&keyFile, "key-file", "", "SSL key file")
	apiCfg.BoolVar(&useGzip, "gzip", true, "use GZIP compression of all responses")
	apiCfg.StringVar(&logMinDurStr, "log-min-dur", "0", "also log successful requests that take at least this long. 0 disables")
	apiCfg.BoolVar(&logHeaders, "log-headers", false, "add the request headers to request logs")
	apiCfg.IntVar(&maxRoutes, "max-tracked-paths", 1000, "maximum number of distinct request paths to keep request stats for")
	apiCfg.IntVar(&maxConcurrentDigests, "max-concurrent-digests", 8, "maximum number of digest exports rendered at the same time")
	apiCfg.StringVar(&promNamespace, "prometheus-namespace", "decaystats", "namespace of the metrics exposed on /metrics")
	globalconf.Register("http", apiCfg, flag.ExitOnError)
}

func ConfigProcess() {
	logMinDur = time.Duration(dur.MustParseDuration("log-min-dur", logMinDurStr)) * time.Second

	//validate the addr
	_, err := net.ResolveTCPAddr("tcp", Addr)
	if err != nil {
		log.Fatal("API listen address is not a valid TCP address.")
	}
	if UseSSL && (certFile == "" || keyFile == "") {
		log.Fatal("API: ssl requires cert-file and key-file")
	}
	if maxRoutes < 1 {
		log.Fatal("API: max-tracked-paths must be at least 1")
	}
	if maxConcurrentDigests < 1 {
		log.Fatal("API: max-concurrent-digests must be at least 1")
	}
}
