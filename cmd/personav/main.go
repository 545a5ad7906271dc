package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/personav/internal/config"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/driver"
	"github.com/agenthands/personav/internal/logging"
)

type globals struct {
	configPath string
	logLevel   string
	tier       string
}

func main() {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "personav",
		Short:         "Personalized object-navigation episode builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "config/config.toml", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&g.tier, "tier", "t", "easy", "difficulty tier: easy, medium or hard")

	rootCmd.AddCommand(batchCmd(g))
	rootCmd.AddCommand(episodesCmd(g))
	rootCmd.AddCommand(statsCmd(g))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads .env and the configuration and installs the logger.
func (g *globals) setup() (*config.Config, model.Tier, *slog.Logger, error) {
	log := logging.New(logging.ParseLevel(g.logLevel))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	cfg, err := config.Load(g.configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("config file not found, using defaults", "path", g.configPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, "", nil, err
	}
	cfg.ApplyEnv()

	tier, err := model.ParseTier(g.tier)
	if err != nil {
		return nil, "", nil, err
	}
	return cfg, tier, log, nil
}

// openStore connects to Memgraph when it is enabled. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*driver.OwnershipStore, func(), error) {
	if !cfg.Memgraph.Enabled {
		return nil, func() {}, nil
	}
	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to memgraph: %w", err)
	}
	if err := d.BuildIndices(ctx); err != nil {
		log.Warn("failed to build indices", "error", err)
	}
	return driver.NewOwnershipStore(d), func() { d.Close(ctx) }, nil
}
