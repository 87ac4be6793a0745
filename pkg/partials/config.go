package partials

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andesco/partials/pkg/normalize"
	"github.com/andesco/partials/pkg/siteroot"
)

// Config controls how pages are composed.
type Config struct {
	// SiteRoot overrides the root derived from the page's loader script.
	SiteRoot string `yaml:"siteRoot,omitempty"`
	// ScriptPattern matches the loader script URL among a page's scripts.
	ScriptPattern string `yaml:"scriptPattern,omitempty"`
	// Partials lists the containers to fill, in order.
	Partials []Request `yaml:"partials,omitempty"`
	// Rules overrides the attributes rewritten inside fragments.
	Rules []normalize.Rule `yaml:"rules,omitempty"`
	// Timeout is the per-fetch timeout in seconds; 0 disables it.
	Timeout int `yaml:"timeout"`

	UserAgent string `yaml:"userAgent,omitempty"`
	MaxBytes  int64  `yaml:"maxBytes,omitempty"`
	LogURLs   bool   `yaml:"logUrls,omitempty"`

	// Origin is the upstream static site served by the proxy.
	Origin string `yaml:"origin,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		ScriptPattern: siteroot.DefaultPattern.String(),
		Partials:      append([]Request(nil), DefaultRequests...),
		Timeout:       15,
		UserAgent:     "partials/1.0 (+https://github.com/andesco/partials)",
		MaxBytes:      DefaultMaxBytes,
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path falls back to PARTIALS_CONFIG; when both
// are empty only the defaults and the environment apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("PARTIALS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("syntax error in config file '%s': %w", path, err)
		}
	}

	cfg.SiteRoot = getenv("SITE_ROOT", cfg.SiteRoot)
	cfg.ScriptPattern = getenv("SCRIPT_PATTERN", cfg.ScriptPattern)
	cfg.UserAgent = getenv("USER_AGENT", cfg.UserAgent)
	cfg.Origin = getenv("ORIGIN", cfg.Origin)
	if timeoutStr := os.Getenv("HTTP_TIMEOUT"); timeoutStr != "" {
		timeout, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT '%s': %w", timeoutStr, err)
		}
		cfg.Timeout = timeout
	}
	if os.Getenv("LOG_URLS") == "true" {
		cfg.LogURLs = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problem found in c.
func (c Config) Validate() error {
	if _, err := regexp.Compile(c.ScriptPattern); err != nil {
		return fmt.Errorf("invalid script pattern '%s': %w", c.ScriptPattern, err)
	}
	if c.SiteRoot != "" {
		if _, err := siteroot.Parse(c.SiteRoot); err != nil {
			return err
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}
	seen := make(map[string]bool, len(c.Partials))
	for i, p := range c.Partials {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Path) == "" {
			return fmt.Errorf("partial %d needs both id and path", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("partial container '%s' listed twice", p.ID)
		}
		seen[p.ID] = true
	}
	for i, r := range c.Rules {
		if r.Selector == "" || r.Attr == "" {
			return fmt.Errorf("rule %d needs both selector and attr", i)
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
