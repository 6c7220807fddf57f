package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
)

func writeServerConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server-config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != constants.DefaultServerAddress {
		t.Errorf("Address = %q, expected %q", cfg.Address, constants.DefaultServerAddress)
	}
	if cfg.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Errorf("UploadSizeBytes() = %d, expected %d", cfg.UploadSizeBytes(), constants.DefaultMaxUploadSizeBytes)
	}
	if cfg.MaxCalculations != defaultMaxCalculations {
		t.Errorf("MaxCalculations = %d, expected %d", cfg.MaxCalculations, defaultMaxCalculations)
	}
	if cfg.ShutdownTimeout != defaultShutdownTimeout || cfg.ReadHeaderTimeout != defaultReadHeaderTimeout {
		t.Errorf("timeouts = %v/%v, expected defaults", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
	}
	if cfg.Logging.Level != "" || cfg.Logging.OutputFile != "" {
		t.Errorf("expected empty logging defaults, got %+v", cfg.Logging)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeServerConfig(t, `address: 127.0.0.1:9000
maxUploadSize: 2M
maxCalculations: 5
readHeaderTimeout: 3s
shutdownTimeout: 1m
logging:
  level: debug
  format: console
  outputFile: /tmp/viverdebitcoin-api.log
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Address != "127.0.0.1:9000" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.UploadSizeBytes() != 2*1024*1024 {
		t.Errorf("UploadSizeBytes() = %d", cfg.UploadSizeBytes())
	}
	if cfg.MaxCalculations != 5 {
		t.Errorf("MaxCalculations = %d", cfg.MaxCalculations)
	}
	if cfg.ReadHeaderTimeout != 3*time.Second || cfg.ShutdownTimeout != time.Minute {
		t.Errorf("timeouts = %v/%v", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfigAddressFromEnv(t *testing.T) {
	t.Setenv(AddressEnv, "0.0.0.0:7070")
	path := writeServerConfig(t, "address: 127.0.0.1:9000\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Address != "0.0.0.0:7070" {
		t.Errorf("Address = %q, expected the environment value", cfg.Address)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"bad size":     "maxUploadSize: invalid",
		"bad duration": "shutdownTimeout: soon",
		"bad yaml":     "address: [",
	}
	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeServerConfig(t, contents)); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxUploadSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3 MB":      3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Errorf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	for _, bad := range []string{"1TB", "abc", "1.5M", "99999999999G"} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) expected error", bad)
		}
	}
}
