// Command dronectl is the operator-side process: a thin wrapper around
// internal/console that accepts the drone's telemetry connection,
// prints it to stdout, and turns stdin command words into UDP
// datagrams.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ehrlich-b/droned/internal/console"
	"github.com/ehrlich-b/droned/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]
	if len(args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <operator_ip> <operator_tcp_port> <drone_ip> <flight_ctrl_udp_port>\n", os.Args[0])
		return 1
	}

	operatorIP, operatorPort, droneIP, flightPort := args[0], args[1], args[2], args[3]

	logger := logging.NewLogger(logging.DefaultConfig())
	logging.SetDefault(logger)

	cfg := console.Config{
		ListenAddr: fmt.Sprintf("%s:%s", operatorIP, operatorPort),
		DroneAddr:  fmt.Sprintf("%s:%s", droneIP, flightPort),
	}
	c := console.New(cfg, logger, os.Stdout, os.Stdin)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := c.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("console exited with error", "error", err)
		return 1
	}
	return 0
}
