// decaystatsd serves the process' own decayed statistics over http and ships
// them to graphite.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/grafana/decaystats/api"
	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/logger"
	"github.com/grafana/decaystats/stats"
	statsConfig "github.com/grafana/decaystats/stats/config"
	"github.com/grafana/globalconf"
	log "github.com/sirupsen/logrus"
)

var (
	GitHash = "(none)"

	instance    = flag.String("instance", "default", "instance identifier. must be unique. used in the stats prefix")
	showVersion = flag.Bool("version", false, "print version string")
	confFile    = flag.String("config", "/etc/decaystats/decaystats.ini", "configuration file path")
	logLevel    = flag.String("log-level", "info", "log level. panic|fatal|error|warning|info|debug")
)

func main() {
	/***********************************
		Initialize Configuration
	***********************************/
	flag.Parse()

	// if the user just wants the version, give it and exit
	if *showVersion {
		fmt.Printf("decaystatsd (built with %s, git hash %s)\n", runtime.Version(), GitHash)
		return
	}

	// Only try and parse the conf file if it exists
	path := ""
	if _, err := os.Stat(*confFile); err == nil {
		path = *confFile
	}
	conf, err := globalconf.NewWithOptions(&globalconf.Options{
		Filename:  path,
		EnvPrefix: "DS_",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: configuration file error: %s", err)
		os.Exit(1)
	}

	api.ConfigSetup()
	statsConfig.ConfigSetup()

	conf.ParseAll()

	/***********************************
		Initialize Logging
	***********************************/
	if err := logger.Setup("decaystatsd", *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s", err)
		os.Exit(1)
	}

	if *instance == "" {
		log.Fatal("instance can't be empty")
	}

	log.Infof("decaystatsd starting. Built from %s - Go version %s", GitHash, runtime.Version())

	/***********************************
		Validate settings
	***********************************/
	api.ConfigProcess()
	statsConfig.ConfigProcess(*instance)

	/***********************************
		Initialize our Stats
	***********************************/
	ctx, cancel := context.WithCancel(context.Background())
	// metric version.%s is the version of decaystatsd running. The metric value is always 1
	stats.NewBool(fmt.Sprintf("version.%s", GitHash)).SetTrue()
	// metric heartbeat is a decayed counter fed once a second. a rate below 1 means the process stalls
	uptime := stats.NewDecayCounter("heartbeat", decay.OneMinute())
	go func() {
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				uptime.Inc()
			case <-ctx.Done():
				return
			}
		}
	}()
	statsConfig.Start(ctx)

	/***********************************
		Initialize our API server
	***********************************/
	apiServer, err := api.NewServer()
	if err != nil {
		log.Fatalf("Failed to start API. %s", err.Error())
	}
	go apiServer.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infof("Received signal %q. Shutting down", sig)

	apiServer.Stop()
	cancel()
	log.Info("terminating.")
}
