package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "environment: development\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Fatalf("server port default = %d, want 8080", c.Server.Port)
	}
	if c.Pipeline.Engine != "auto" {
		t.Fatalf("pipeline engine default = %q, want auto", c.Pipeline.Engine)
	}
	if c.Risk.Thresholds.High != 0.8 {
		t.Fatalf("high threshold default = %v, want 0.8", c.Risk.Thresholds.High)
	}
	if c.Kafka.UpdatesTopic != "riskpulse.risk.updates" {
		t.Fatalf("updates topic default = %q", c.Kafka.UpdatesTopic)
	}
}

func TestThresholdOrderingEnforced(t *testing.T) {
	path := writeConfig(t, `environment: development
risk:
  thresholds:
    low: 0.6
    medium: 0.5
    high: 0.8
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected ordering error")
	} else if !strings.Contains(err.Error(), "strictly increasing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInvalidEnvironmentRejected(t *testing.T) {
	path := writeConfig(t, "environment: sandbox\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for environment")
	}
}

func TestKafkaRequiresBrokers(t *testing.T) {
	path := writeConfig(t, `environment: development
kafka:
  enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when kafka enabled without brokers")
	}
}

func TestFeedRequiresURLAndChannels(t *testing.T) {
	path := writeConfig(t, `environment: development
feed:
  enabled: true
  api_key: k
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when feed enabled without url")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: development\n")

	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[0] != "broker1:9092" {
		t.Fatalf("brokers override not applied: %v", c.Kafka.Brokers)
	}
	if !c.Kafka.Enabled {
		t.Fatalf("kafka should be enabled by broker override")
	}
	if c.ClickHouse.Host != "ch.internal" {
		t.Fatalf("clickhouse host override not applied: %q", c.ClickHouse.Host)
	}
}
