package main

import (
	"flag"
	"log"

	"go-gin-cinema-reservation/config"
	"go-gin-cinema-reservation/internal/database"
	"go-gin-cinema-reservation/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	down := flag.Int("down", 0, "rollback N migrations instead of applying all pending ones")
	source := flag.String("source", "file://migrations", "migrations source URL")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	log := logger.WithComponent("migrate")

	dsn := cfg.Database.DSN()
	if *down > 0 {
		if err := database.RollbackMigrations(dsn, *source, *down); err != nil {
			log.Fatal("rollback failed", zap.Int("steps", *down), zap.Error(err))
		}
		log.Info("rolled back migrations", zap.Int("steps", *down))
		return
	}

	if err := database.RunMigrations(dsn, *source); err != nil {
		log.Fatal("migrate up failed", zap.Error(err))
	}
	log.Info("migrations applied")
}
