/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jasonlvhit/gocron"
	"github.com/mockly/apiserver/config"
	"github.com/mockly/apiserver/internal/db"
	"github.com/mockly/apiserver/internal/mq"
	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the interview status sweep and consumes interview events",
	Long: `Runs the periodic sweep that completes elapsed interviews and, when a
broker is configured, logs every interview lifecycle event. Usage:

	apiserver worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		ctx := cmd.Context()
		logger := slog.Default()

		if err := runWorker(ctx, cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer dbConn.Close()

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}

	opts := []services.InterviewOption{services.WithLogger(logger)}
	if broker != nil {
		defer broker.Close()
		opts = append(opts, services.WithEvents(broker, cfg.MQ.EventsChannel), services.WithPublishTimeout(cfg.MQ.PublishTimeout))
	}
	interviews := services.NewInterviewService(store.NewInterviewRepository(dbConn), opts...)

	interval := cfg.Worker.SweepIntervalMinutes
	if interval == 0 {
		interval = 5
	}

	scheduler := gocron.NewScheduler()
	if err := scheduler.Every(interval).Minutes().Do(sweepElapsed, ctx, interviews, logger); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	sweepElapsed(ctx, interviews, logger)
	stopped := scheduler.Start()
	logger.Info("worker started", slog.Uint64("sweep_interval_minutes", interval))

	var wg sync.WaitGroup
	if broker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := broker.Subscribe(ctx, cfg.MQ.EventsChannel, logEvent(logger))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event subscription stopped", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("worker shutting down")
	close(stopped)
	scheduler.Clear()
	wg.Wait()
	return nil
}

func sweepElapsed(ctx context.Context, interviews *services.InterviewService, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	changed, err := interviews.SweepElapsed(ctx)
	if err != nil {
		logger.Error("sweep elapsed interviews", slog.Any("error", err))
		return
	}
	if changed > 0 {
		logger.Info("completed elapsed interviews", slog.Int("count", changed))
	}
}

// logEvent acknowledges every event after logging it. Undecodable payloads
// are dropped so they are not redelivered forever.
func logEvent(logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		event, err := services.DecodeEvent(msg.Data)
		if err != nil {
			logger.Warn("drop undecodable event", slog.String("message_id", msg.ID), slog.Any("error", err))
			return nil
		}
		logger.Info("interview event",
			slog.String("kind", event.Kind),
			slog.String("interview_id", event.InterviewID),
			slog.String("user_id", event.UserID),
			slog.String("actor_id", event.ActorID),
			slog.String("status", string(event.Status)),
			slog.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
