package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Inspect audit events",
	GroupID: "accounts",
}

var eventsListCmd = &cobra.Command{
	Use:   "list <account-id>",
	Short: "List recorded events for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evts, err := apiClient.GetEvents(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		printEventsTable(cmd.OutOrStdout(), evts)
		return nil
	},
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live events from NATS",
	Args:  cobra.NoArgs,
	// Talks to NATS directly; no server connection.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		topic, _ := cmd.Flags().GetString("topic")
		account, _ := cmd.Flags().GetString("account")
		if natsURL == "" {
			return fmt.Errorf("--nats-url or CFGSEED_NATS_URL is required")
		}

		errOut := cmd.ErrOrStderr()
		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				fmt.Fprintf(errOut, "%s %v\n", ui.RenderWarn("disconnected:"), err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				fmt.Fprintln(errOut, ui.RenderOK("reconnected"))
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(errOut, "Watching %s on %s (Ctrl-C to stop)\n", topic, natsURL)
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				if account != "" && msg.AccountID != account {
					continue
				}
				printEventMessage(cmd.OutOrStdout(), msg, time.Now())
			}
		}
	},
}

// printEventMessage writes one live event. In JSON mode each event is one
// line of {"topic", "account_id", "received_at", "payload"}.
func printEventMessage(w io.Writer, msg events.Message, at time.Time) {
	if jsonOutput {
		payload := json.RawMessage(msg.Data)
		if !json.Valid(payload) {
			payload, _ = json.Marshal(string(msg.Data))
		}
		line, _ := json.Marshal(struct {
			Topic      string          `json:"topic"`
			AccountID  string          `json:"account_id,omitempty"`
			ReceivedAt time.Time       `json:"received_at"`
			Payload    json.RawMessage `json:"payload"`
		}{msg.Topic, msg.AccountID, at.UTC(), payload})
		fmt.Fprintln(w, string(line))
		return
	}

	var pretty bytes.Buffer
	if err := json.Compact(&pretty, msg.Data); err != nil {
		pretty.Reset()
		pretty.Write(msg.Data)
	}
	topic := ui.RenderAccent(msg.Topic)
	if msg.AccountID != "" {
		topic += " " + msg.AccountID
	}
	fmt.Fprintf(w, "%s %s %s\n", ui.RenderMuted(at.Format(timeLayout)), topic, pretty.String())
}

func init() {
	eventsWatchCmd.Flags().String("nats-url", os.Getenv("CFGSEED_NATS_URL"), "NATS server URL")
	eventsWatchCmd.Flags().String("topic", events.TopicAll, "subject to subscribe to (NATS wildcards allowed)")
	eventsWatchCmd.Flags().String("account", "", "only show events for this account ID")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
