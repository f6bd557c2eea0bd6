// Package config wires the stats package to the configuration file and
// command line flags.
package config

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/grafana/decaystats/stats"
	"github.com/grafana/globalconf"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var (
	enabled       bool
	prefix        string
	addr          string
	intervalStr   string
	bufferSize    int
	timeoutStr    string
	pauseMeter    bool
	pauseInterval string

	interval time.Duration
	timeout  time.Duration
)

func ConfigSetup() {
	inStats := flag.NewFlagSet("stats", flag.ExitOnError)
	inStats.BoolVar(&enabled, "enabled", true, "enable sending graphite messages for instrumentation")
	inStats.StringVar(&prefix, "prefix", "decaystats.stats.default.$instance", "stats prefix (will add trailing dot automatically if needed)")
	inStats.StringVar(&addr, "addr", "localhost:2003", "graphite address")
	inStats.StringVar(&intervalStr, "interval", "10s", "interval at which to send statistics")
	inStats.IntVar(&bufferSize, "buffer-size", 20000, "how many messages (holding all measurements from one interval) to buffer up in case graphite endpoint is unavailable.")
	inStats.StringVar(&timeoutStr, "timeout", "10s", "timeout after which a write is considered not successful")
	inStats.BoolVar(&pauseMeter, "pause-meter", true, "measure how late the process wakes up from short sleeps")
	inStats.StringVar(&pauseInterval, "pause-meter-interval", "100ms", "how long the pause meter sleeps between measurements")
	globalconf.Register("stats", inStats, flag.ExitOnError)
}

func ConfigProcess(instance string) {
	// a bare number means seconds
	interval = time.Duration(dur.MustParseNDuration("stats.interval", intervalStr)) * time.Second
	timeout = time.Duration(dur.MustParseNDuration("stats.timeout", timeoutStr)) * time.Second
	if _, err := time.ParseDuration(pauseInterval); err != nil {
		log.Fatalf("stats: invalid pause-meter-interval %q: %s", pauseInterval, err)
	}
	if !enabled {
		return
	}
	if addr == "" {
		log.Fatal("stats: addr can't be empty when stats are enabled")
	}
	prefix = strings.Replace(prefix, "$instance", instance, -1)
}

// Start registers the runtime reporters and starts shipping stats until ctx
// is canceled.
func Start(ctx context.Context) {
	stats.NewMemoryReporter()
	if _, err := stats.NewProcessReporter(); err != nil {
		log.Warnf("stats: can't report process stats: %s", err)
	}
	if pauseMeter {
		d, _ := time.ParseDuration(pauseInterval)
		stats.NewPauseMeter(ctx, "process.pauses", d)
	}
	if enabled {
		stats.NewGraphite(ctx, prefix, addr, interval, bufferSize, timeout)
	} else {
		stats.NewDevnull(ctx)
		log.Warn("running decaystats without instrumentation.")
	}
}
