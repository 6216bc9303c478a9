package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brannt/skypilot/internal/loadgen"
	"github.com/brannt/skypilot/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	target := flag.String("target", "http://localhost:8080", "autoscaler API base URL")
	service := flag.String("service", "", "service name to generate load for")
	baseQPS := flag.Float64("qps", 10, "base requests per second")
	pattern := flag.String("pattern", "steady", "traffic pattern: steady, daily, spike, random, gradual_rise")
	interval := flag.Duration("interval", 5*time.Second, "reporting interval")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if *service == "" {
		return fmt.Errorf("-service is required")
	}

	logger.Setup(*logLevel, "development")
	logger.Info("Starting load generator")

	gen := loadgen.New(loadgen.Config{
		TargetURL:   *target,
		ServiceName: *service,
		BaseQPS:     *baseQPS,
		Pattern:     loadgen.ParsePattern(*pattern),
		Interval:    *interval,
	})
	gen.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down load generator")
	gen.Stop()
	return nil
}
