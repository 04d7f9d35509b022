package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	"SignalDesk/internal/usecase"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/util"
)

func newRefreshCmd(load loader) *cobra.Command {
	var (
		symbols    []string
		invalidate bool
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Publish refresh requests for the running service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled {
				return errors.New("refresh needs kafka.enabled")
			}
			if len(symbols) == 0 {
				symbols = cfg.Warmup.Symbols
			}
			msgs := refreshMessages(symbols, invalidate)
			if len(msgs) == 0 {
				return errors.New("no symbols given")
			}

			producer, cleanup, err := di.ProvideKafkaProducer(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := producer.PublishBatch(cmd.Context(), cfg.Kafka.RefreshTopic, msgs); err != nil {
				return fmt.Errorf("publish refresh: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d refresh request(s) on %s\n", len(msgs), cfg.Kafka.RefreshTopic)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to refresh (default: warm-up watchlist)")
	cmd.Flags().BoolVar(&invalidate, "invalidate", true, "drop cached results before recomputing")
	return cmd
}

func refreshMessages(symbols []string, invalidate bool) []pkgkafka.Message {
	seen := make(map[string]struct{}, len(symbols))
	msgs := make([]pkgkafka.Message, 0, len(symbols))
	for _, s := range symbols {
		sym := util.NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(sym),
			Value: usecase.RefreshRequest{Symbol: sym, Invalidate: invalidate},
		})
	}
	return msgs
}
