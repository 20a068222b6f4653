package wizard

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a2a-net/relay/internal/config"
	"github.com/a2a-net/relay/pkg/cli"
)

func scriptedWizard(input string) (*Wizard, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(&cli.Prompter{In: strings.NewReader(input), Out: out}), out
}

func TestRun_WritesLoadableConfig(t *testing.T) {
	// secret, addr, origins, max per window, window ms, json confirm
	input := strings.Join([]string{
		"wizard-test-secret-long-enough-to-pass",
		":9090",
		"http://localhost:3000, http://example.com",
		"8",
		"2000",
		"n",
	}, "\n") + "\n"

	w, _ := scriptedWizard(input)
	path := filepath.Join(t.TempDir(), "relay.json")
	if err := w.Run(path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load generated config: %v", err)
	}
	if cfg.Auth.SecretKey != "wizard-test-secret-long-enough-to-pass" {
		t.Errorf("SecretKey = %q", cfg.Auth.SecretKey)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Limits.MaxPerWindow != 8 {
		t.Errorf("MaxPerWindow = %d, want 8", cfg.Limits.MaxPerWindow)
	}
	if cfg.Limits.RateWindow.Duration != 2*time.Second {
		t.Errorf("RateWindow = %v, want 2s", cfg.Limits.RateWindow.Duration)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}

func TestRun_GeneratesSecretWhenEmpty(t *testing.T) {
	// Empty secret line triggers auto-generation; rest take defaults.
	input := "\n\n\n\n\n\n"

	w, out := scriptedWizard(input)
	path := filepath.Join(t.TempDir(), "relay.json")
	if err := w.Run(path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load generated config: %v", err)
	}
	if len(cfg.Auth.SecretKey) != 64 {
		t.Errorf("generated secret length = %d, want 64 hex chars", len(cfg.Auth.SecretKey))
	}
	if !strings.Contains(out.String(), "Generated secret") {
		t.Error("wizard did not announce the generated secret")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestRunDefaults(t *testing.T) {
	t.Setenv("A2A_KEY", "env-provided-secret-for-defaults-mode")
	t.Setenv("A2A_ADDR", ":7070")

	w, _ := scriptedWizard("")
	path := filepath.Join(t.TempDir(), "relay.json")
	if err := w.RunDefaults(path); err != nil {
		t.Fatalf("RunDefaults: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load generated config: %v", err)
	}
	if cfg.Auth.SecretKey != "env-provided-secret-for-defaults-mode" {
		t.Errorf("SecretKey = %q, want env value", cfg.Auth.SecretKey)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", cfg.Server.Addr)
	}
}
