package main

import (
	"flag"
	"os"

	"github.com/noah-isme/toko-kredit/internal/config"
	"github.com/noah-isme/toko-kredit/internal/migrations"
	"github.com/noah-isme/toko-kredit/internal/obs"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Parse()

	logger := obs.NewLogger("toko-kredit-migrate", "console", "info")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	m, err := migrations.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Error().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrator")
		}
	}()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}
	switch cmd {
	case "up":
		err = migrations.Up(m)
	case "down":
		err = migrations.Down(m, *steps)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			logger.Fatal().Err(verr).Msg("read version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		return
	default:
		logger.Error().Str("command", cmd).Msg("usage: migrate [-steps n] up|down|version")
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}
	logger.Info().Str("command", cmd).Msg("migrations applied")
}
