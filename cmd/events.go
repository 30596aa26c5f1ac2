/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/kooshamoradpour/G5-TechStore/internal/mq"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published domain events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log every event on the configured channel until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bus, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if bus == nil {
			return errors.New("MQ_BACKEND is none; nothing to watch")
		}
		defer bus.Close()

		log.Info().Str("channel", cfg.MQ.Channel).Str("backend", cfg.MQ.Backend).Msg("watching events")
		err = bus.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			var ev services.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				// Requeueing a payload we can't decode would loop forever.
				log.Warn().Err(err).Str("message_id", msg.ID).Msg("undecodable event dropped")
				return nil
			}
			log.Info().
				Str("event", ev.Type).
				Str("event_id", ev.ID).
				Time("occurred_at", ev.OccurredAt).
				Str("user_id", ev.UserID).
				Str("product_id", ev.ProductID).
				Str("action", ev.Action).
				Int("quantity", ev.Quantity).
				Msg("event")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
