package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8080 || c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("unexpected server defaults: %+v", c.Server)
	}
	if !reflect.DeepEqual(c.Model.Dirs, []string{"models", "."}) {
		t.Fatalf("unexpected model dirs: %v", c.Model.Dirs)
	}
	if c.Valuation.CacheBackend != CacheMemory || c.Valuation.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected valuation defaults: %+v", c.Valuation)
	}
	if !c.Valuation.RateLimit.Enabled || c.Kafka.Enabled || c.ClickHouse.Enabled {
		t.Fatalf("unexpected feature toggles")
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: production
server:
  port: 9090
valuation:
  cache_backend: none
  rate_limit:
    enabled: false
model:
  dirs: [/srv/models]
  timeout: 750ms
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", c.Server.Port)
	}
	if c.Valuation.RateLimit.Enabled {
		t.Fatalf("explicit false must not be overridden by defaults")
	}
	if !reflect.DeepEqual(c.Model.Dirs, []string{"/srv/models"}) || c.Model.Timeout != 750*time.Millisecond {
		t.Fatalf("unexpected model config: %+v", c.Model)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("AUTOVALUE_PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("AUTOVALUE_MODEL_DIRS", "a,b")

	c, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 7000 {
		t.Fatalf("expected port override, got %d", c.Server.Port)
	}
	if !c.Kafka.Enabled || !reflect.DeepEqual(c.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("unexpected kafka config: enabled=%v brokers=%v", c.Kafka.Enabled, c.Kafka.Brokers)
	}
	if c.Redis.Addr != "cache:6379" {
		t.Fatalf("expected redis override, got %q", c.Redis.Addr)
	}
	if !reflect.DeepEqual(c.Model.Dirs, []string{"a", "b"}) {
		t.Fatalf("unexpected dirs %v", c.Model.Dirs)
	}
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("AUTOVALUE_PORT", "http")
	if _, err := LoadWithEnv(writeConfig(t, "environment: test\n")); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"cache backend": "valuation:\n  cache_backend: memcached\n",
		"kafka brokers": "kafka:\n  enabled: true\n",
		"consumer":      "kafka:\n  consumer:\n    enabled: true\n",
		"log format":    "log:\n  format: xml\n",
		"collect":       "log:\n  collect:\n    enabled: true\n",
		"port":          "server:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "environment: test\n"+body))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), "validate config") {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
