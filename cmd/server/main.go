package main

import (
	"buildtrack/internal/config"
	"buildtrack/internal/database"
	"buildtrack/internal/logger"
	"buildtrack/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	database.Init(cfg.DBDSN, log)

	r := server.NewRouter(cfg, database.DB, log)

	log.Info("starting server", zap.String("port", cfg.ServerPort))
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
