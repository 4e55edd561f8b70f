package common

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDictConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  DictConfig
		wantErr bool
	}{
		{"defaults", DefaultDictConfig(), false},
		{"with expire", DictConfig{Namespace: "ns", Expire: time.Hour, MaxValueSize: 10}, false},
		{"empty namespace", DictConfig{MaxValueSize: 10}, true},
		{"negative expire", DictConfig{Namespace: "ns", Expire: -time.Second, MaxValueSize: 10}, true},
		{"zero max size", DictConfig{Namespace: "ns"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDictConfigWithDefaults(t *testing.T) {
	c := DictConfig{Expire: time.Minute}.WithDefaults()
	if c.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", c.Namespace, DefaultNamespace)
	}
	if c.MaxValueSize != DefaultMaxValueSize {
		t.Errorf("MaxValueSize = %d, want %d", c.MaxValueSize, DefaultMaxValueSize)
	}
	if c.Expire != time.Minute {
		t.Errorf("Expire = %s, want 1m", c.Expire)
	}
}

func TestConfigString(t *testing.T) {
	dc := DictConfig{Namespace: "cache", Expire: 90 * time.Second, PreserveExpiration: true, MaxValueSize: 1024}
	out := dc.String()
	for _, want := range []string{"DICTIONARY", "cache", "1m30s", "true"} {
		if !strings.Contains(out, want) {
			t.Errorf("DictConfig.String() missing %q:\n%s", want, out)
		}
	}

	rc := RedisConfig{Addrs: []string{"a:1", "b:2"}, Password: "secret"}
	out = rc.String()
	if strings.Contains(out, "secret") {
		t.Errorf("RedisConfig.String() leaks the password:\n%s", out)
	}
	for _, want := range []string{"a:1", "b:2", "******"} {
		if !strings.Contains(out, want) {
			t.Errorf("RedisConfig.String() missing %q:\n%s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error", ""} {
		if _, err := ParseLogLevel(lvl); err != nil {
			t.Errorf("ParseLogLevel(%q) unexpected error: %v", lvl, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseLogLevel(verbose) = %v, want ErrInvalidConfig", err)
	}
}
