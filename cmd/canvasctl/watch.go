package main

import (
	"context"
	"errors"

	"canvas-rag-be/pkg/events"
	pktNats "canvas-rag-be/pkg/nats"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var natsURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream canvas events from NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := natsURL
			if url == "" {
				url = a.config().App.NatsURL
			}
			if url == "" {
				return errors.New("no NATS url: pass --nats-url or set NATS_URL")
			}

			sub, err := pktNats.NewSubscriber(url, nil)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx := cmd.Context()
			err = sub.Subscribe(ctx, pktNats.Subject(">"), "", func(ctx context.Context, event events.Event) error {
				return a.printEvent(event)
			})
			if err != nil {
				return err
			}

			a.info("Watching %s (Ctrl+C to stop)", url)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server (overrides NATS_URL)")
	return cmd
}
