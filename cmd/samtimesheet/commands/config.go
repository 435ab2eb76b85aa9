package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"samtimesheet/internal/components/notify"
	"samtimesheet/internal/components/telemetry"
	"samtimesheet/pkg/configutil"
	"strconv"
	"time"
)

const (
	defaultStore       = "./store.json"
	defaultCacheExpiry = 3600
	defaultTokenTTL    = 3600
)

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Store is a file path, "sqlite://<path>" or "libsql://<url>".
	Store string `json:"store"`
	// CacheExpiry is in seconds.
	CacheExpiry int `json:"cache_expiry"`
	// TokenTTL is in seconds.
	TokenTTL         int               `json:"token_ttl"`
	Timezone         string            `json:"timezone"`
	CloudflareBypass bool              `json:"cloudflare_bypass"`
	Telemetry        telemetry.Config  `json:"telemetry"`
	Notify           notify.SmtpConfig `json:"notify"`
}

func (c Config) cacheExpiry() time.Duration {
	return time.Duration(c.CacheExpiry) * time.Second
}

func (c Config) tokenTTL() time.Duration {
	return time.Duration(c.TokenTTL) * time.Second
}

// loadConfig reads the config file (which may be missing) and applies the
// environment overrides on top of it. A bare file name is searched for in the
// working directory and its parents.
func loadConfig(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	var (
		cfg Config
		err error
	)
	if filepath.Base(path) == path {
		cfg, _, err = configutil.ReadRecursively[Config](path)
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if value, ok := lookupEnv("AH_USERNAME"); ok {
		cfg.Username = value
	}
	if value, ok := lookupEnv("AH_PASSWORD"); ok {
		cfg.Password = value
	}
	if value, ok := lookupEnv("STORE_PATH"); ok {
		cfg.Store = value
	}
	if value, ok := lookupEnv("TIMESHEET_CACHE"); ok {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("TIMESHEET_CACHE: %w", err)
		}
		cfg.CacheExpiry = seconds
	}

	if cfg.Store == "" {
		cfg.Store = defaultStore
	}
	if cfg.CacheExpiry == 0 {
		cfg.CacheExpiry = defaultCacheExpiry
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Username == "" {
		return fmt.Errorf("a username must be set in the config or through AH_USERNAME")
	}
	if c.Password == "" {
		return fmt.Errorf("a password must be set in the config or through AH_PASSWORD")
	}
	if c.CacheExpiry < 0 {
		return fmt.Errorf("cache_expiry must be positive, got %d", c.CacheExpiry)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("token_ttl must be positive, got %d", c.TokenTTL)
	}
	return nil
}
