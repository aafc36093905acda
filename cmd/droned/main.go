// Command droned is the drone-side process: it builds the shared
// region and starts the supervisor, which spawns the battery,
// accelerometer, flight controller, GPS producer, and telemetry actors
// plus the watchdog, in the shape cmd/ublk-mem builds a device and
// waits on a signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ehrlich-b/droned"
	"github.com/ehrlich-b/droned/internal/config"
	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/metrics"
	"github.com/ehrlich-b/droned/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()

	fs := flag.NewFlagSet("droned", flag.ContinueOnError)
	configFile := fs.String("config", "", "optional YAML file overriding tunables (flags still win)")
	verbose := fs.Bool("v", false, "verbose (debug) logging")
	cfg.RegisterTunableFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			logger.Error("failed to load config file", "path", *configFile, "error", err)
			return 1
		}
		// Flags take precedence over the file: re-parse so a flag the
		// operator actually passed overrides what the file set.
		if err := fs.Parse(os.Args[1:]); err != nil {
			return 1
		}
	}

	args := fs.Args()
	if err := cfg.ParseArgs(args); err != nil {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <operator_ip> <operator_tcp_port> <drone_ip> <flight_ctrl_udp_port>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fs.PrintDefaults()
		return 1
	}

	var observer droned.Observer = droned.NewMetricsObserver(droned.NewMetrics())
	var promObserver *metrics.PrometheusObserver
	if cfg.MetricsAddr != "" {
		promObserver = metrics.NewPrometheusObserver()
		observer = promObserver
	}

	supCfg := supervisor.DefaultConfig()
	supCfg.Region = cfg.RegionConfig()
	supCfg.Battery.TickInterval = cfg.BatteryTick
	supCfg.Battery.AbortThreshold = cfg.LowBatteryPercent
	supCfg.Accelerometer.TickInterval = cfg.AccelTick
	supCfg.FlightCtrl.TickInterval = cfg.FlightTick
	supCfg.FlightCtrl.ListenAddr = fmt.Sprintf("%s:%d", cfg.DroneAddr.String(), cfg.FlightCtrlPort)
	supCfg.GPS.SampleInterval = cfg.GPSTick
	supCfg.Telemetry.TickInterval = cfg.TelemetryTick
	supCfg.Telemetry.DialAddr = fmt.Sprintf("%s:%d", cfg.OperatorAddr.String(), cfg.OperatorPort)
	supCfg.Watchdog.TickInterval = cfg.WatchdogTick

	sup := supervisor.New(supCfg, logger, observer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if promObserver != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promObserver.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server exited", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- sup.Run(ctx) }()

	logger.Info("droned started",
		"operator", fmt.Sprintf("%s:%d", cfg.OperatorAddr.String(), cfg.OperatorPort),
		"drone", fmt.Sprintf("%s:%d", cfg.DroneAddr.String(), cfg.FlightCtrlPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case err := <-runDone:
		if err != nil && err != context.Canceled {
			logger.Error("supervisor exited unexpectedly", "error", err)
			return 1
		}
	}

	cancel()

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		logger.Warn("shutdown timed out, forcing exit")
	}

	return 0
}
