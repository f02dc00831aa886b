package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/goccy/go-yaml"

	"github.com/haught/akips-inventory/internal/filter"
	"github.com/haught/akips-inventory/internal/hostvars"
)

// Config holds the inventory source configuration, normally read from
// akips.yml. Every field left empty by the file falls back to its
// AKIPS_* environment variable, matching the upstream plugin's option
// bindings.
type Config struct {
	Host     string `yaml:"host" env:"AKIPS_HOST"`
	Username string `yaml:"username" env:"AKIPS_USERNAME"`
	Password string `yaml:"password" env:"AKIPS_PASSWORD"`
	Proxy    string `yaml:"proxy" env:"AKIPS_PROXY"`

	// Group filtering. restrict_groups/limit_groups are allow patterns,
	// ignore_groups/exclude_groups deny patterns; each pair is aliased.
	RestrictGroups string `yaml:"restrict_groups" env:"AKIPS_RESTRICT_GROUPS"`
	LimitGroups    string `yaml:"limit_groups" env:"AKIPS_LIMIT_GROUPS"`
	IgnoreGroups   string `yaml:"ignore_groups" env:"AKIPS_IGNORE_GROUPS"`
	ExcludeGroups  string `yaml:"exclude_groups" env:"AKIPS_EXCLUDE_GROUPS"`

	// Host filtering. exclude_networks is a regex over the IP string.
	ExcludeHosts    string `yaml:"exclude_hosts" env:"AKIPS_EXCLUDE_HOSTS"`
	ExcludeNetworks string `yaml:"exclude_networks" env:"AKIPS_EXCLUDE_NETWORKS"`

	// Variable rules, pattern -> variable map. MapSlice keeps document
	// order so overlapping rules merge deterministically.
	GroupHostvars yaml.MapSlice `yaml:"group_hostvars"`
	HostHostvars  yaml.MapSlice `yaml:"host_hostvars"`

	Cache CacheConfig `yaml:"cache"`

	// ConfigFile is the path the config was loaded from, if any.
	ConfigFile string `yaml:"-"`
}

// CacheConfig controls the optional sqlite response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"AKIPS_CACHE"`
	Dir     string        `yaml:"dir" env:"AKIPS_CACHE_DIR"`
	TTL     time.Duration `yaml:"ttl" env:"AKIPS_CACHE_TTL"`
}

// Rules is the compiled form of the filter and variable configuration,
// produced before any network call so invalid patterns fail fast.
type Rules struct {
	Groups   *filter.GroupFilter
	Hosts    *filter.HostFilter
	Assigner *hostvars.Assigner
}

// Load reads the configuration with the following priority (highest to
// lowest): config file values, AKIPS_* environment variables, defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}

	// Environment fills whatever the file left empty.
	envCfg := &Config{}
	if err := env.Parse(envCfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.Host = coalesce(cfg.Host, envCfg.Host)
	cfg.Username = coalesce(cfg.Username, envCfg.Username)
	cfg.Password = coalesce(cfg.Password, envCfg.Password)
	cfg.Proxy = coalesce(cfg.Proxy, envCfg.Proxy)
	cfg.RestrictGroups = coalesce(cfg.RestrictGroups, envCfg.RestrictGroups)
	cfg.LimitGroups = coalesce(cfg.LimitGroups, envCfg.LimitGroups)
	cfg.IgnoreGroups = coalesce(cfg.IgnoreGroups, envCfg.IgnoreGroups)
	cfg.ExcludeGroups = coalesce(cfg.ExcludeGroups, envCfg.ExcludeGroups)
	cfg.ExcludeHosts = coalesce(cfg.ExcludeHosts, envCfg.ExcludeHosts)
	cfg.ExcludeNetworks = coalesce(cfg.ExcludeNetworks, envCfg.ExcludeNetworks)
	if !cfg.Cache.Enabled {
		cfg.Cache.Enabled = envCfg.Cache.Enabled
	}
	cfg.Cache.Dir = coalesce(cfg.Cache.Dir, envCfg.Cache.Dir, "./data")
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = envCfg.Cache.TTL
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}

	// The api-db endpoint is HTTPS; accept a bare FQDN like the upstream
	// plugin documents.
	if cfg.Host != "" && !strings.Contains(cfg.Host, "://") {
		cfg.Host = "https://" + cfg.Host
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	return cfg, nil
}

// Validate checks required connection fields. The password may still be
// supplied interactively, so it is checked separately by the caller.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required (set host in akips.yml or AKIPS_HOST)")
	}
	return nil
}

// Compile builds the filter and variable rules, failing with the
// offending rule named if any regex is invalid. Called before the first
// network request.
func (c *Config) Compile() (*Rules, error) {
	groups, err := filter.NewGroupFilter(c.RestrictGroups, c.LimitGroups, c.IgnoreGroups, c.ExcludeGroups)
	if err != nil {
		return nil, err
	}
	hosts, err := filter.NewHostFilter(c.ExcludeHosts, c.ExcludeNetworks)
	if err != nil {
		return nil, err
	}
	groupRules, err := hostvars.ParseRules("group_hostvars", c.GroupHostvars)
	if err != nil {
		return nil, err
	}
	hostRules, err := hostvars.ParseRules("host_hostvars", c.HostHostvars)
	if err != nil {
		return nil, err
	}
	return &Rules{
		Groups:   groups,
		Hosts:    hosts,
		Assigner: hostvars.NewAssigner(groupRules, hostRules),
	}, nil
}

// String returns a description of where the config came from.
func (c *Config) String() string {
	if c.ConfigFile != "" {
		return fmt.Sprintf("config file (%s)", c.ConfigFile)
	}
	return "environment variables"
}

// coalesce returns the first non-empty string value
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
