//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Runtime.Dev || cfg.HTTP.Port != 8080 || cfg.Negotiation.Currency != "₹" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Negotiation.IdleTimeout != 24*time.Hour || cfg.Telegram.Language != "en" {
		t.Fatalf("unexpected negotiation/telegram defaults: %+v %+v", cfg.Negotiation, cfg.Telegram)
	}
	if cfg.AI.AgentModel != cfg.AI.DefaultModel || cfg.AI.ConfidenceThreshold != 0.6 {
		t.Fatalf("unexpected ai defaults: %+v", cfg.AI)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
http:
  port: 9090
  rate_limit: 30
negotiation:
  max_messages: 12
  idle_timeout: 2h
  products:
    - reference: ref-1
      title: Sofa
      listed_price: 20000
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.HTTP.RateLimit != 30 || cfg.HTTP.RateLimitWindow != time.Minute {
		t.Fatalf("http section not applied: %+v", cfg.HTTP)
	}
	if cfg.Negotiation.MaxMessages != 12 || cfg.Negotiation.IdleTimeout != 2*time.Hour || len(cfg.Negotiation.Products) != 1 {
		t.Fatalf("negotiation section not applied: %+v", cfg.Negotiation)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"threshold":  "ai:\n  confidence_threshold: 1.5\n",
		"posture":    "negotiation:\n  aggressive_above: 10\n  collaborative_from: 20\n",
		"product":    "negotiation:\n  products:\n    - title: Sofa\n",
		"bad yaml":   "http: [",
		"wrong type": "http:\n  port: eighty\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}
