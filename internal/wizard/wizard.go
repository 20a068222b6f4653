// Package wizard provides an interactive setup wizard for the relay.
package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/a2a-net/relay/internal/config"
	"github.com/a2a-net/relay/pkg/cli"
)

// Wizard drives the interactive relay config setup.
type Wizard struct {
	p *cli.Prompter
}

// New creates a Wizard using the given Prompter.
func New(p *cli.Prompter) *Wizard {
	return &Wizard{p: p}
}

// Run executes the interactive wizard and writes the config file.
func (w *Wizard) Run(outputPath string) error {
	_, _ = fmt.Fprintln(w.p.Out)
	_, _ = fmt.Fprintln(w.p.Out, "  A2A Relay — Configuration Wizard")
	_, _ = fmt.Fprintln(w.p.Out, strings.Repeat("─", 38))
	_, _ = fmt.Fprintln(w.p.Out)

	cfg := &config.Config{}

	// Shared secret — auto-generated unless the operator brings one.
	secret := w.p.AskSecret("  Shared secret (empty to auto-generate)")
	if secret == "" {
		var err error
		secret, err = config.GenerateRandomSecret()
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		_, _ = fmt.Fprintf(w.p.Out, "  Generated secret: %s\n", secret)
	}
	cfg.Auth.SecretKey = secret
	_, _ = fmt.Fprintln(w.p.Out)

	// Server settings.
	_, _ = fmt.Fprintln(w.p.Out, "Server")
	cfg.Server.Addr = w.p.Ask("  Listen address", ":8080")
	origins := w.p.Ask("  Allowed origins (comma-separated)", "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
		}
	}
	_, _ = fmt.Fprintln(w.p.Out)

	// Message rate limits.
	_, _ = fmt.Fprintln(w.p.Out, "Rate Limits")
	cfg.Limits.MaxPerWindow = w.p.AskInt("  Messages per window", 5)
	windowMS := w.p.AskInt("  Window length (ms)", 1000)
	cfg.Limits.RateWindow = config.Duration{Duration: time.Duration(windowMS) * time.Millisecond}
	_, _ = fmt.Fprintln(w.p.Out)

	// Logging.
	if w.p.Confirm("Use JSON log format?", true) {
		cfg.Logging.Format = "json"
	} else {
		cfg.Logging.Format = "text"
	}
	_, _ = fmt.Fprintln(w.p.Out)

	// Output path.
	if outputPath == "" {
		outputPath = w.p.Ask("Config file output path", "./a2a-relay.json")
	}

	if err := writeConfig(cfg, outputPath); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w.p.Out, "\n  Config written to %s\n", outputPath)
	_, _ = fmt.Fprintln(w.p.Out)
	_, _ = fmt.Fprintln(w.p.Out, "  Next steps:")
	_, _ = fmt.Fprintf(w.p.Out, "    a2a-relay run %s\n\n", outputPath)

	return nil
}

// RunDefaults generates a relay config non-interactively using environment
// variables and secure auto-generated secrets. Used by Docker entrypoints.
func (w *Wizard) RunDefaults(outputPath string) error {
	cfg := &config.Config{}

	secret := os.Getenv("A2A_KEY")
	if secret == "" {
		var err error
		secret, err = config.GenerateRandomSecret()
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
	}
	cfg.Auth.SecretKey = secret

	cfg.Server.Addr = envOr("A2A_ADDR", ":8080")

	if outputPath == "" {
		outputPath = "./a2a-relay.json"
	}
	if err := writeConfig(cfg, outputPath); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w.p.Out, "Config generated at %s\n", outputPath)
	return nil
}

func writeConfig(cfg *config.Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
