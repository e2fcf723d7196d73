package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Test Engine defaults
	if cfg.Engine.Dimensions != 768 {
		t.Errorf("Expected Dimensions=768, got %d", cfg.Engine.Dimensions)
	}
	if cfg.Engine.DegreeBound != 32 {
		t.Errorf("Expected DegreeBound=32, got %d", cfg.Engine.DegreeBound)
	}
	if cfg.Engine.EfBuild != 400 {
		t.Errorf("Expected EfBuild=400, got %d", cfg.Engine.EfBuild)
	}
	if cfg.Engine.MaxCandidatePoolSize != 750 {
		t.Errorf("Expected MaxCandidatePoolSize=750, got %d", cfg.Engine.MaxCandidatePoolSize)
	}
	if cfg.Engine.MaxPrunedSize != 300 {
		t.Errorf("Expected MaxPrunedSize=300, got %d", cfg.Engine.MaxPrunedSize)
	}
	if cfg.Engine.DataDir != "./data" {
		t.Errorf("Expected data dir ./data, got %s", cfg.Engine.DataDir)
	}

	// Test Server defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.EnableTLS {
		t.Error("Expected TLS disabled by default")
	}

	// Test Auth defaults
	if cfg.Auth.Enabled {
		t.Error("Expected auth disabled by default")
	}

	// Test RateLimit defaults
	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}
	if cfg.RateLimit.RequestsPerSec != 100 {
		t.Errorf("Expected RequestsPerSec=100, got %f", cfg.RateLimit.RequestsPerSec)
	}
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"RABITQ_DIMENSIONS", "RABITQ_CAPACITY", "RABITQ_DEGREE_BOUND",
		"RABITQ_EF_SEARCH", "RABITQ_EF_BUILD", "RABITQ_DATA_DIR",
		"RABITQ_HOST", "RABITQ_PORT", "RABITQ_MAX_CONNECTIONS",
		"RABITQ_REQUEST_TIMEOUT", "RABITQ_ENABLE_TLS",
		"RABITQ_AUTH_ENABLED", "RABITQ_JWT_SECRET",
		"RABITQ_RATE_LIMIT_ENABLED", "RABITQ_RATE_LIMIT_RPS", "RABITQ_RATE_LIMIT_BURST",
	}

	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("RABITQ_DIMENSIONS", "1536")
	os.Setenv("RABITQ_CAPACITY", "2000000")
	os.Setenv("RABITQ_DEGREE_BOUND", "64")
	os.Setenv("RABITQ_EF_BUILD", "800")
	os.Setenv("RABITQ_DATA_DIR", "/var/lib/rabitq")
	os.Setenv("RABITQ_HOST", "127.0.0.1")
	os.Setenv("RABITQ_PORT", "9090")
	os.Setenv("RABITQ_REQUEST_TIMEOUT", "60s")
	os.Setenv("RABITQ_ENABLE_TLS", "true")
	os.Setenv("RABITQ_AUTH_ENABLED", "true")
	os.Setenv("RABITQ_JWT_SECRET", "super-secret")
	os.Setenv("RABITQ_RATE_LIMIT_ENABLED", "false")
	os.Setenv("RABITQ_RATE_LIMIT_RPS", "250")

	cfg := LoadFromEnv()

	if cfg.Engine.Dimensions != 1536 {
		t.Errorf("Expected Dimensions=1536, got %d", cfg.Engine.Dimensions)
	}
	if cfg.Engine.Capacity != 2000000 {
		t.Errorf("Expected Capacity=2000000, got %d", cfg.Engine.Capacity)
	}
	if cfg.Engine.DegreeBound != 64 {
		t.Errorf("Expected DegreeBound=64, got %d", cfg.Engine.DegreeBound)
	}
	if cfg.Engine.EfBuild != 800 {
		t.Errorf("Expected EfBuild=800, got %d", cfg.Engine.EfBuild)
	}
	if cfg.Engine.DataDir != "/var/lib/rabitq" {
		t.Errorf("Expected data dir /var/lib/rabitq, got %s", cfg.Engine.DataDir)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("Expected request timeout 60s, got %v", cfg.Server.RequestTimeout)
	}
	if !cfg.Server.EnableTLS {
		t.Error("Expected TLS enabled")
	}

	if !cfg.Auth.Enabled {
		t.Error("Expected auth enabled")
	}
	if cfg.Auth.JWTSecret != "super-secret" {
		t.Errorf("Expected JWT secret super-secret, got %s", cfg.Auth.JWTSecret)
	}

	if cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting disabled")
	}
	if cfg.RateLimit.RequestsPerSec != 250 {
		t.Errorf("Expected RequestsPerSec=250, got %f", cfg.RateLimit.RequestsPerSec)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	originalPort := os.Getenv("RABITQ_PORT")
	defer func() {
		if originalPort == "" {
			os.Unsetenv("RABITQ_PORT")
		} else {
			os.Setenv("RABITQ_PORT", originalPort)
		}
	}()

	os.Setenv("RABITQ_PORT", "invalid")
	cfg := LoadFromEnv()

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080 for invalid value, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	envVars := []string{
		"RABITQ_DIMENSIONS", "RABITQ_CAPACITY", "RABITQ_DEGREE_BOUND",
		"RABITQ_HOST", "RABITQ_PORT", "RABITQ_AUTH_ENABLED",
	}

	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				os.Setenv(key, value)
			}
		}
	}()

	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Engine.Dimensions != defaults.Engine.Dimensions {
		t.Errorf("Expected default dimensions, got %d", cfg.Engine.Dimensions)
	}
	if cfg.Server.Host != defaults.Server.Host {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Auth.Enabled != defaults.Auth.Enabled {
		t.Errorf("Expected default auth enabled, got %v", cfg.Auth.Enabled)
	}
}

func TestValidate(t *testing.T) {
	base := Default()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", mutate: func(c *Config) {}, wantErr: false},
		{name: "invalid port (too low)", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "invalid port (too high)", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "invalid degree bound", mutate: func(c *Config) { c.Engine.DegreeBound = 1 }, wantErr: true},
		{name: "invalid dimensions", mutate: func(c *Config) { c.Engine.Dimensions = 0 }, wantErr: true},
		{name: "ef_build below degree bound", mutate: func(c *Config) { c.Engine.EfBuild = 1 }, wantErr: true},
		{name: "auth enabled without secret", mutate: func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "rate limit enabled with zero rps", mutate: func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.RequestsPerSec = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "localhost", Port: 8080}

	addr := cfg.Address()
	expected := "localhost:8080"
	if addr != expected {
		t.Errorf("Expected address %s, got %s", expected, addr)
	}

	defaultCfg := Default()
	addr = defaultCfg.Server.Address()
	expected = "0.0.0.0:8080"
	if addr != expected {
		t.Errorf("Expected default address %s, got %s", expected, addr)
	}
}
