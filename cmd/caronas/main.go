package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	memory := flag.Bool("memory", false, "run with in-memory storage and no external brokers")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *memory); err != nil {
		os.Exit(1)
	}
}
