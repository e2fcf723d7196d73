// Package config holds the engine's and REST façade's tunables: grouped
// sub-structs with defaults, env-var overrides, and a Validate() pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/AlayaDB-AI/AlayaLite/pkg/rabitq"
)

// Config holds all server configuration.
type Config struct {
	Engine    EngineConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// EngineConfig holds the RaBitQ engine's tunables.
type EngineConfig struct {
	Dimensions           int    // Vector dimensions (default: 768)
	Capacity             int    // Max vectors the space can hold
	DegreeBound          int    // Fixed graph out-degree D (default: 32)
	EfSearch             int    // Default search-time beam width
	EfBuild              int    // Refinement candidate-search beam width (default: 400)
	MaxCandidatePoolSize int    // Refinement candidate pool cap (default: 750)
	MaxPrunedSize        int    // Refinement pruned-candidate cap (default: 300)
	MaxBsIter            int    // Angle-threshold binary search iterations (default: 5)
	RotatorSeed          int64  // FhtKacRotator's persisted random seed
	DataDir              string // Snapshot directory path
}

// ServerConfig holds REST server configuration.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 8080)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
	CORSEnabled     bool          // Enable CORS
	CORSOrigins     []string      // Allowed CORS origins
}

// AuthConfig holds JWT authentication configuration for the mutating
// endpoints (/v1/fit, /v1/refine).
type AuthConfig struct {
	Enabled      bool
	JWTSecret    string
	RequireAdmin bool
}

// RateLimitConfig holds per-client rate limiting configuration; the REST
// server applies it to every route.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	PerIP          bool
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Dimensions:           768,
			Capacity:             1_000_000,
			DegreeBound:          32,
			EfSearch:             100,
			EfBuild:              400,
			MaxCandidatePoolSize: 750,
			MaxPrunedSize:        300,
			MaxBsIter:            5,
			RotatorSeed:          1,
			DataDir:              "./data",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
			CORSEnabled:     true,
			CORSOrigins:     []string{"*"},
		},
		Auth: AuthConfig{
			Enabled:      false,
			RequireAdmin: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerSec: 100,
			Burst:          200,
			PerIP:          true,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	cfg := Default()

	// Engine configuration
	if dims := os.Getenv("RABITQ_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			cfg.Engine.Dimensions = d
		}
	}
	if cap := os.Getenv("RABITQ_CAPACITY"); cap != "" {
		if c, err := strconv.Atoi(cap); err == nil {
			cfg.Engine.Capacity = c
		}
	}
	if degree := os.Getenv("RABITQ_DEGREE_BOUND"); degree != "" {
		if d, err := strconv.Atoi(degree); err == nil {
			cfg.Engine.DegreeBound = d
		}
	}
	if ef := os.Getenv("RABITQ_EF_SEARCH"); ef != "" {
		if e, err := strconv.Atoi(ef); err == nil {
			cfg.Engine.EfSearch = e
		}
	}
	if efBuild := os.Getenv("RABITQ_EF_BUILD"); efBuild != "" {
		if e, err := strconv.Atoi(efBuild); err == nil {
			cfg.Engine.EfBuild = e
		}
	}
	if seed := os.Getenv("RABITQ_ROTATOR_SEED"); seed != "" {
		if s, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Engine.RotatorSeed = s
		}
	}
	if dataDir := os.Getenv("RABITQ_DATA_DIR"); dataDir != "" {
		cfg.Engine.DataDir = dataDir
	}

	// Server configuration
	if host := os.Getenv("RABITQ_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("RABITQ_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("RABITQ_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("RABITQ_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("RABITQ_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("RABITQ_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("RABITQ_TLS_KEY")
	}

	// Auth configuration
	if authEnabled := os.Getenv("RABITQ_AUTH_ENABLED"); authEnabled == "true" {
		cfg.Auth.Enabled = true
	}
	if secret := os.Getenv("RABITQ_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	// Rate limit configuration
	if rlEnabled := os.Getenv("RABITQ_RATE_LIMIT_ENABLED"); rlEnabled == "false" {
		cfg.RateLimit.Enabled = false
	}
	if rps := os.Getenv("RABITQ_RATE_LIMIT_RPS"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSec = r
		}
	}
	if burst := os.Getenv("RABITQ_RATE_LIMIT_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = b
		}
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Engine validation
	if c.Engine.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d (must be > 0)", c.Engine.Dimensions)
	}
	if c.Engine.Capacity < 1 {
		return fmt.Errorf("invalid capacity: %d (must be > 0)", c.Engine.Capacity)
	}
	if c.Engine.DegreeBound != rabitq.DegreeBound {
		return fmt.Errorf("invalid degree bound: %d (the packed-code layout is fixed at %d)", c.Engine.DegreeBound, rabitq.DegreeBound)
	}
	if c.Engine.EfSearch < 1 {
		return fmt.Errorf("invalid ef_search: %d (must be > 0)", c.Engine.EfSearch)
	}
	if c.Engine.EfBuild < c.Engine.DegreeBound {
		return fmt.Errorf("invalid ef_build: %d (must be >= degree bound %d)", c.Engine.EfBuild, c.Engine.DegreeBound)
	}
	if c.Engine.DataDir == "" {
		return fmt.Errorf("data directory not specified")
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	// Auth validation
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but JWT secret not specified")
	}

	// Rate limit validation
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSec <= 0 {
		return fmt.Errorf("invalid rate limit requests per second: %f (must be > 0)", c.RateLimit.RequestsPerSec)
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
