// internal/config/config.go
// Package config provides configuration loading and management for the catalog service.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// In development, it loads .env and .env.local files if they exist.
// In production, it relies solely on system environment variables.
// godotenv.Load() does not override already-set environment variables,
// preserving OS env > .env precedence.
func init() {
	// Load .env file if it exists (for shared development config)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// Load .env.local if it exists (for local overrides, gitignored)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the catalog service.
type Config struct {
	Env  string // Deployment environment (dev, staging, prod)
	Port string // HTTP server port

	// Local persistence
	CatalogPath  string // Path to the local catalog JSON document
	SettingsPath string // Path to the settings JSON file

	// Admin authentication
	AdminPassword string // Shared admin secret, required
	JWTSecret     string // HS256 signing secret for admin tokens, required

	// Audit op-log (optional, memory-backed when unset)
	DatabaseDSN string // PostgreSQL connection string

	// Event streaming (optional, noop when unset)
	NATSURL string // NATS server URL

	// Remote mirror (optional; the local store is authoritative without it)
	S3Endpoint    string        // S3-compatible storage endpoint
	S3Region      string        // S3 region
	S3Bucket      string        // S3 bucket holding the mirrored catalog
	S3AccessKey   string        // S3 access key
	S3SecretKey   string        // S3 secret key
	S3ObjectKey   string        // Object key of the mirrored catalog document
	MirrorTimeout time.Duration // Bound on every mirror call

	// Match engine tuning
	MatchThreshold  int // Acceptance threshold for best-match scoring, (0,100]
	MatchMinOverlap int // Token-overlap floor for multi-result queries
}

// Default configuration values used when environment variables are not set
const (
	defaultPort            = "8080"            // Default HTTP server port
	defaultEnv             = "dev"             // Default environment
	defaultCatalogPath     = "movie_list.json" // Default local catalog document
	defaultSettingsPath    = "settings.json"   // Default settings file
	defaultS3Region        = "us-east-1"       // Default S3 region
	defaultS3ObjectKey     = "movie_list.json" // Default mirrored object key
	defaultMirrorTimeout   = 5 * time.Second   // Default bound on mirror calls
	defaultMatchThreshold  = 70                // Default fuzzy acceptance threshold
	defaultMatchMinOverlap = 5                 // Default token-overlap floor
)

// Load reads environment variables and produces a Config suitable for wiring the service.
// It handles both required and optional configuration parameters, providing defaults
// where appropriate. Returns an error if required parameters are missing or invalid.
func Load() (Config, error) {
	cfg := Config{
		Env:             getEnv("SARA_ENV", defaultEnv),
		Port:            getEnv("SARA_PORT", defaultPort),
		CatalogPath:     getEnv("SARA_CATALOG_PATH", defaultCatalogPath),
		SettingsPath:    getEnv("SARA_SETTINGS_PATH", defaultSettingsPath),
		S3Region:        getEnv("SARA_S3_REGION", defaultS3Region),
		S3ObjectKey:     getEnv("SARA_S3_OBJECT_KEY", defaultS3ObjectKey),
		MirrorTimeout:   defaultMirrorTimeout,
		MatchThreshold:  defaultMatchThreshold,
		MatchMinOverlap: defaultMatchMinOverlap,
	}

	// Handle optional variables
	if dsn, exists := os.LookupEnv("SARA_DB_DSN"); exists {
		cfg.DatabaseDSN = dsn
	}

	if natsURL, exists := os.LookupEnv("SARA_NATS_URL"); exists {
		cfg.NATSURL = natsURL
	}

	if s3Endpoint, exists := os.LookupEnv("SARA_S3_ENDPOINT"); exists {
		cfg.S3Endpoint = s3Endpoint
	}

	if s3Bucket, exists := os.LookupEnv("SARA_S3_BUCKET"); exists {
		cfg.S3Bucket = s3Bucket
	}

	if s3AccessKey, exists := os.LookupEnv("SARA_S3_ACCESS_KEY"); exists {
		cfg.S3AccessKey = s3AccessKey
	}

	if s3SecretKey, exists := os.LookupEnv("SARA_S3_SECRET_KEY"); exists {
		cfg.S3SecretKey = s3SecretKey
	}

	cfg.AdminPassword = os.Getenv("SARA_ADMIN_PASSWORD")
	cfg.JWTSecret = os.Getenv("SARA_JWT_SECRET")

	// Handle mirror timeout, expressed in seconds
	if v, exists := os.LookupEnv("SARA_MIRROR_TIMEOUT_SECONDS"); exists {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.MirrorTimeout = time.Duration(secs) * time.Second
		}
	}

	// Handle match engine tuning
	if v, exists := os.LookupEnv("SARA_MATCH_THRESHOLD"); exists {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			cfg.MatchThreshold = n
		}
	}

	if v, exists := os.LookupEnv("SARA_MATCH_MIN_OVERLAP"); exists {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchMinOverlap = n
		}
	}

	// Validate required parameters
	if cfg.AdminPassword == "" {
		return cfg, fmt.Errorf("SARA_ADMIN_PASSWORD is required")
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("SARA_JWT_SECRET is required")
	}

	return cfg, nil
}

// MirrorConfigured reports whether enough S3 settings are present to run
// against a real remote mirror.
func (c Config) MirrorConfigured() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}
