package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sustainifly/go/internal/config"
	"github.com/mcdev12/sustainifly/go/internal/playfield"
	"github.com/mcdev12/sustainifly/go/internal/region"
	"github.com/mcdev12/sustainifly/go/internal/session"
	"github.com/mcdev12/sustainifly/go/internal/tui"
)

// tuiConfig is read from the environment. The terminal belongs to the UI, so
// logs go to LOG_FILE or nowhere.
type tuiConfig struct {
	RegionsFile string `env:"REGIONS_FILE"`
	LogFile     string `env:"LOG_FILE"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sustainifly:", err)
		os.Exit(1)
	}
}

func run() error {
	// Logging is configured below, so a bad .env is reported once it is.
	envErr := godotenv.Load()
	if envErr != nil && os.IsNotExist(envErr) {
		envErr = nil
	}

	var cfg tuiConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	if err := config.SetupLogging(cfg.LogLevel, "json", logOut); err != nil {
		return err
	}
	if envErr != nil {
		log.Warn().Err(envErr).Msg("could not load .env file")
	}

	catalog, err := region.Load(cfg.RegionsFile)
	if err != nil {
		return err
	}
	spawner, err := playfield.NewSpawner()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := session.NewController(catalog)
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			log.Error().Err(err).Msg("session loop failed")
		}
	}()

	p := tea.NewProgram(tui.New(ctrl, catalog, spawner), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal client: %w", err)
	}

	cancel()
	<-ctrl.Done()
	log.Info().Str("session_id", ctrl.ID().String()).Msg("terminal session ended")
	return nil
}
