package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	robolab "robolab"
	"robolab/cmd/robolab/ui"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := fetchStatus(ctx, host)
			if err != nil {
				return err
			}

			fmt.Println(ui.KeyValues("  ",
				ui.KV("State", st["state"]),
				ui.KV("Backend", st["backend_version"]),
				ui.KV("Middleware", st["middleware_version"]),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1:7163", "Daemon command address")
	return cmd
}

func fetchStatus(ctx context.Context, host string) (map[string]string, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+host, nil)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	defer conn.Close()

	req := robolab.Command{ID: uuid.NewString(), Name: "status"}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send status request: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	// The daemon may interleave unsolicited messages; wait for ours.
	for {
		var reply struct {
			ID      string          `json:"id"`
			Command string          `json:"command"`
			Data    json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&reply); err != nil {
			return nil, fmt.Errorf("read status reply: %w", err)
		}
		if reply.ID != req.ID {
			continue
		}
		if reply.Command == "error" {
			var e map[string]string
			_ = json.Unmarshal(reply.Data, &e)
			return nil, fmt.Errorf("daemon error: %s", e["message"])
		}

		var st map[string]string
		if err := json.Unmarshal(reply.Data, &st); err != nil {
			return nil, fmt.Errorf("decode status reply: %w", err)
		}
		return st, nil
	}
}
