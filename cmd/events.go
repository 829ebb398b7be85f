/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/mq"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the activity event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log activity events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.Events)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("events backend is not configured")
		}
		defer broker.Close()

		logger.Info().Str("channel", cfg.Events.Channel).Msg("tailing events")
		err = broker.Subscribe(ctx, cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
			event, err := events.Decode(msg)
			if err != nil {
				// Undecodable payloads are acknowledged and dropped.
				logger.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping malformed event")
				return nil
			}
			logger.Info().
				Str("event_id", event.ID).
				Str("type", event.Type).
				Int("actor_id", event.ActorID).
				Int("subject_id", event.SubjectID).
				Time("occurred_at", event.OccurredAt).
				Interface("data", event.Data).
				Msg("event")
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
