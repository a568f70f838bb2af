package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/clients/caldav"
	"github.com/tazhate/familycal/internal/logging"
	"github.com/tazhate/familycal/internal/service"
	"github.com/tazhate/familycal/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "familycal",
	Short:         "Family calendar page with Telegram briefings",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	rootCmd.AddCommand(serveCmd, todayCmd, exportCmd, importCmd, calendarsCmd)
}

// app holds what every command needs
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *storage.Storage
	events *service.EventService
	caldav *caldav.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var client *caldav.Client
	if cfg.CalDAVEnabled() {
		client = caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendar)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		events: service.NewEventService(store, client, cfg.Timezone, logger),
		caldav: client,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close storage", zap.Error(err))
	}
	if err := a.logger.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
		fmt.Fprintln(os.Stderr, "sync logger:", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
