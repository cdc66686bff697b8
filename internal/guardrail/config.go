// File path: internal/guardrail/config.go
package guardrail

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Limits bound result set sizes. The ceiling also caps limits the model
// writes itself.
type Limits struct {
	DefaultLimit int `json:"default_limit"`
	Ceiling      int `json:"ceiling"`
}

type Config struct {
	ForbiddenKeywords []string `json:"forbidden_keywords"`
	Limits            Limits   `json:"limits"`
}

// defaultForbiddenKeywords blocks every write, DDL, and session-control verb.
// REPLACE is deliberately absent: it is a SQLite string function and blocking
// it would reject legitimate SELECTs.
var defaultForbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
	"GRANT", "REVOKE", "ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX",
	"EXEC", "EXECUTE", "MERGE",
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.ForbiddenKeywords) == 0 {
		c.ForbiddenKeywords = append([]string(nil), defaultForbiddenKeywords...)
	}
	if c.Limits.DefaultLimit <= 0 {
		c.Limits.DefaultLimit = 1000
	}
	if c.Limits.Ceiling <= 0 {
		c.Limits.Ceiling = 1000
	}
	if c.Limits.DefaultLimit > c.Limits.Ceiling {
		c.Limits.DefaultLimit = c.Limits.Ceiling
	}
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if raw := strings.TrimSpace(os.Getenv("GUARDRAIL_FORBIDDEN_KEYWORDS")); raw != "" {
		for _, keyword := range strings.Split(raw, ",") {
			if keyword = strings.TrimSpace(keyword); keyword != "" {
				cfg.ForbiddenKeywords = append(cfg.ForbiddenKeywords, strings.ToUpper(keyword))
			}
		}
	}
	var err error
	if cfg.Limits.DefaultLimit, err = intEnv("GUARDRAIL_DEFAULT_LIMIT"); err != nil {
		return Config{}, err
	}
	if cfg.Limits.Ceiling, err = intEnv("GUARDRAIL_LIMIT_CEILING"); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func intEnv(name string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, nil
}
