package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/queue"
)

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run the event consumer",
		Long:  `Drain the enrollment.created and instructor.activated queues into <EVENTS_LOG_DIR>/events.log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.LoadQueueConfig()
			log.Printf("event consumer writing to %s", cfg.LogDir)
			err := queue.StartEventConsumer(ctx, cfg)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
