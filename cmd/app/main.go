package main

import (
	"flag"
	"log"
	"os"

	"AutoValue/internal/di"
	"AutoValue/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s cache=%s kafka=%v clickhouse=%v",
		cfg.Environment, cfg.Valuation.CacheBackend, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
