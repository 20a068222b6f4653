// Command a2a-agent is an interactive example agent for the relay.
//
// It authenticates, optionally joins rooms, then turns stdin lines into
// chat frames: bare text broadcasts, /dm sends direct messages, and
// /join, /leave, /list, /quit do what they say.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/a2a-net/relay/internal/client"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg client.Config
	var reconnect time.Duration

	root := &cobra.Command{
		Use:   "a2a-agent",
		Short: "Interactive example agent for the A2A relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				cfg.Token = os.Getenv("A2A_KEY")
			}
			if cfg.Token == "" {
				return fmt.Errorf("no token: pass --token or set A2A_KEY")
			}
			if cfg.AgentID == "" {
				cfg.AgentID = "agent-" + uuid.New().String()[:8]
			}
			if cfg.Name == "" {
				cfg.Name = cfg.AgentID
			}
			cfg.ReconnectInterval = reconnect
			return run(cfg)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar(&cfg.URL, "url", "ws://localhost:8080/ws", "relay WebSocket URL")
	root.Flags().StringVar(&cfg.AgentID, "id", "", "agent identity (default: random)")
	root.Flags().StringVar(&cfg.Name, "name", "", "display name (default: the agent id)")
	root.Flags().StringVar(&cfg.Token, "token", "", "shared secret or minted token (default: $A2A_KEY)")
	root.Flags().StringSliceVar(&cfg.Rooms, "join", nil, "rooms to join on connect, e.g. --join '#init'")
	root.Flags().BoolVar(&cfg.TLSSkipVerify, "insecure", false, "skip TLS certificate verification")
	root.Flags().DurationVar(&reconnect, "reconnect", 3*time.Second, "delay between reconnect attempts")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("a2a-agent", version)
		},
	})

	return root
}

func run(cfg client.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	c := client.NewClient(cfg, func(frame map[string]any) {
		fmt.Println(client.Render(frame))
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		_ = c.Connect(ctx)
		close(done)
	}()

	fmt.Printf("connecting to %s as %s (%s)\n", cfg.URL, cfg.Name, cfg.AgentID)

	go readInput(ctx, cancel, c)

	<-done
	return nil
}

// readInput turns stdin lines into relay frames until EOF or /quit.
func readInput(ctx context.Context, cancel context.CancelFunc, c *client.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch {
		case line == "/quit":
			cancel()
			return

		case line == "/list":
			err = c.List()

		case strings.HasPrefix(line, "/join "):
			err = c.Join(strings.TrimSpace(strings.TrimPrefix(line, "/join ")))

		case strings.HasPrefix(line, "/leave "):
			err = c.Leave(strings.TrimSpace(strings.TrimPrefix(line, "/leave ")))

		case strings.HasPrefix(line, "/dm "):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "/dm "))
			target, text, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Println("usage: /dm <agent-id> <text>")
				continue
			}
			err = c.SendChat(target, text)

		case strings.HasPrefix(line, "#"):
			// "#room some text" sends into that room.
			room, text, ok := strings.Cut(line, " ")
			if !ok {
				fmt.Println("usage: #room <text>")
				continue
			}
			err = c.SendChat(room, text)

		default:
			err = c.SendChat("", line)
		}

		if err != nil {
			fmt.Fprintln(os.Stderr, "send failed:", err)
		}
	}
	cancel()
}
