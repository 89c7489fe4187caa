package config

import (
	"fmt"
	"os"
	"time"
)

// Config captures runtime configuration values used by the portal backend.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Defaults to ":18080".
	ServerAddress string

	// DatabaseURL is the Postgres DSN used by database/sql.
	DatabaseURL string

	// BillingAPIURL is the base URL of the billing platform REST proxy.
	BillingAPIURL string

	// BillingSessionID is the platform session token attached to every
	// billing API request.
	BillingSessionID string

	// HPPURL is the hosted-payments API base URL passed to the widget.
	HPPURL string

	// HPPEnvironmentID identifies the hosted-payments environment.
	HPPEnvironmentID string

	// HPPScriptURL is the widget bundle location, bootstrapped once per process.
	HPPScriptURL string

	// SessionTTL is how long an inactive wizard session lives before the
	// sweeper marks it abandoned. Defaults to 30m.
	SessionTTL time.Duration
}

const (
	defaultServerAddress = ":18080"
	defaultHPPScriptURL  = "https://cdn.aws.billingplatform.com/hosted-payments-ui@release/lib.js"
	defaultSessionTTL    = 30 * time.Minute

	envServerAddress    = "BACKEND_ADDR"
	envDatabaseURL      = "DATABASE_URL"
	envBillingAPIURL    = "BILLING_API_URL"
	envBillingSessionID = "BILLING_SESSION_ID"
	envHPPURL           = "HPP_URL"
	envHPPEnvironmentID = "HPP_ENV_ID"
	envHPPScriptURL     = "HPP_SCRIPT_URL"
	envSessionTTL       = "WIZARD_SESSION_TTL"
)

// Load reads configuration from environment variables, applies defaults, and
// returns a Config structure. Required values return an error when missing.
func Load() (Config, error) {
	cfg := Config{
		ServerAddress:    firstNonEmpty(os.Getenv(envServerAddress), defaultServerAddress),
		DatabaseURL:      os.Getenv(envDatabaseURL),
		BillingAPIURL:    os.Getenv(envBillingAPIURL),
		BillingSessionID: os.Getenv(envBillingSessionID),
		HPPURL:           os.Getenv(envHPPURL),
		HPPEnvironmentID: os.Getenv(envHPPEnvironmentID),
		HPPScriptURL:     firstNonEmpty(os.Getenv(envHPPScriptURL), defaultHPPScriptURL),
		SessionTTL:       defaultSessionTTL,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%s is required", envDatabaseURL)
	}
	if cfg.BillingAPIURL == "" {
		return Config{}, fmt.Errorf("%s is required", envBillingAPIURL)
	}
	if cfg.BillingSessionID == "" {
		return Config{}, fmt.Errorf("%s is required", envBillingSessionID)
	}
	if cfg.HPPURL == "" {
		return Config{}, fmt.Errorf("%s is required", envHPPURL)
	}
	if cfg.HPPEnvironmentID == "" {
		return Config{}, fmt.Errorf("%s is required", envHPPEnvironmentID)
	}

	if raw := os.Getenv(envSessionTTL); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envSessionTTL, err)
		}
		cfg.SessionTTL = ttl
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
