package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/a2a-net/relay/internal/auth"
	"github.com/a2a-net/relay/internal/config"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <agent-id>",
		Short: "Mint a signed, time-limited credential for one agent",
		Long:  "Mints an HS256 token bound to the given agent ID, signed with the relay's shared secret. Agents can present it in place of the raw secret.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := resolveConfigPath(cmd, nil, "relay-config.json")
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			lifetime, _ := cmd.Flags().GetDuration("lifetime")
			if lifetime == 0 {
				lifetime = cfg.Auth.TokenLifetime.Duration
			}

			tok, err := auth.NewService(cfg.Auth.SecretKey).MintAgentToken(args[0], lifetime)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}

			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().Duration("lifetime", 0, "token lifetime (default: auth.token_lifetime from config)")
	return cmd
}
