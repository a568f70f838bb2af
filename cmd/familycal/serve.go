package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/bot"
	"github.com/tazhate/familycal/internal/page"
	"github.com/tazhate/familycal/internal/scheduler"
	"github.com/tazhate/familycal/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the calendar web server, bot and scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl := page.NewController(a.events, a.cfg.Timezone, a.cfg.WeekStart, a.logger)
	srv, err := web.New(a.cfg, a.events, ctrl, a.logger)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	var sched *scheduler.Scheduler
	if a.cfg.TelegramEnabled() {
		tgBot, err := bot.New(a.cfg.TelegramToken, a.cfg.OwnerTelegramID, a.events, a.logger)
		if err != nil {
			a.logger.Error("telegram disabled", zap.Error(err))
		} else {
			tgBot.SetCommands()

			sched = scheduler.New(a.cfg, a.events, a.logger)
			sched.SetSender(tgBot)

			go func() {
				if err := sched.Start(ctx); err != nil {
					a.logger.Error("scheduler error", zap.Error(err))
				}
			}()
			go func() {
				if err := tgBot.Start(ctx); err != nil {
					a.logger.Error("bot error", zap.Error(err))
				}
			}()
		}
	}

	if a.caldav.CanPush() {
		a.logger.Info("caldav push enabled", zap.String("calendar", a.cfg.CalDAVCalendar))
	}
	a.logger.Info("familycal started")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("server stopped", zap.Error(err))
			stop()
			if sched != nil {
				sched.Stop()
			}
			return err
		}
	}

	a.logger.Info("shutting down")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.Error("stop server", zap.Error(err))
	}

	a.logger.Info("familycal stopped")
	return nil
}
