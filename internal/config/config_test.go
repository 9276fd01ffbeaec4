package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("CHECKOUT_TIMEOUT_SECONDS", "")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.KafkaBrokers != nil {
		t.Fatalf("expected no kafka brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.CheckoutTimeout != 15*time.Second {
		t.Fatalf("expected 15s checkout timeout, got %s", cfg.CheckoutTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("CHECKOUT_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "bogus")

	cfg := FromEnv()
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.CheckoutTimeout != 3*time.Second {
		t.Fatalf("unexpected checkout timeout %s", cfg.CheckoutTimeout)
	}
	if cfg.RateLimitRPS != 0.5 || cfg.RateLimitBurst != 10 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}
