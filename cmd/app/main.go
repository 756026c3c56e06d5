package main

import (
	"flag"
	"log"
	"os"

	"StockInsight/internal/di"
	"StockInsight/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s cache=%s kafka=%t clickhouse=%t", cfg.Environment, cfg.Cache.Backend, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v in=%s out=%s", cfg.Kafka.Brokers, cfg.Kafka.Topics.Predictions, cfg.Kafka.Topics.Signals)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
