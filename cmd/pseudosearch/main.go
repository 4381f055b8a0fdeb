package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pkglog "github.com/grafana/bleichenbacher-fakeprimes/pkg/log"
	"github.com/grafana/bleichenbacher-fakeprimes/pseudoprimes"
)

func main() {
	var (
		configPath  string
		logFormat   string
		metricsAddr string
		pin         bool
	)

	fc := defaultFileConfig()

	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&logFormat, "log.format", fc.LogFormat, "log output format (logfmt or json)")
	flag.Var(&fc.LogLevel, "log.level", "log filtering level (debug, info, warn, error)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (empty disables)")
	flag.Uint64Var(&fc.Modulus, "modulus", fc.Modulus, "run modulus M")
	flag.BoolVar(&pin, "pin", false, "pin worker threads to CPUs via NUMA affinity")
	flag.IntVar(&fc.Tasks, "tasks", 0, "number of Gray-code range partitions per phase (0 = auto)")
	flag.IntVar(&fc.CandidateShards, "candidate-shards", 0, "candidate map shard count (0 = default)")
	flag.Parse()

	if configPath != "" {
		loaded, err := loadFileConfig(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error loading config:", err)
			os.Exit(1)
		}
		// Parse the command line again on top of the file's values, so
		// that exactly the flags given on the command line override it.
		fc = loaded
		logFormat, pin, metricsAddr = fc.LogFormat, fc.Pin, fc.MetricsAddr
		flag.Parse()
	}
	fc.LogFormat = logFormat
	fc.Pin = pin

	logger := pkglog.InitLogger(fc.LogFormat, fc.LogLevel)

	pc, err := fc.pipelineConfig()
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(1)
	}

	pipeline, err := pseudoprimes.New(pc, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to build pipeline", "err", err)
		os.Exit(1)
	}

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			level.Info(logger).Log("msg", "serving metrics", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				level.Error(logger).Log("msg", "metrics server exited", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := pipeline.Run(ctx)
	if err != nil {
		level.Error(logger).Log("msg", "search failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("found %d fake prime(s)\n", len(results))
	for _, r := range results {
		fmt.Printf("  %s\n", r.N.String())
	}
}
