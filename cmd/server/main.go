package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/personav/internal/config"
	"github.com/agenthands/personav/internal/driver"
	"github.com/agenthands/personav/internal/logging"
	"github.com/agenthands/personav/internal/server"
)

func main() {
	log := logging.New(logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("config file not found, using defaults", "path", cfgPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()

	ctx := context.Background()
	var store server.Store
	if cfg.Memgraph.Enabled {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			log.Error("failed to connect to memgraph", "error", err)
			os.Exit(1)
		}
		defer d.Close(ctx)
		if err := d.BuildIndices(ctx); err != nil {
			log.Warn("failed to build indices", "error", err)
		}
		store = driver.NewOwnershipStore(d)
	}

	srv := server.NewServer(store, log)
	r := srv.SetupRouter()

	log.Info("starting server", "port", port, "graph_store", store != nil)
	if err := r.Run(":" + port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
