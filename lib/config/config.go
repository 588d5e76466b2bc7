// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/tcbot-project/tcbot/lib/sealed"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration for tcbot.
type Config struct {
	Environment Environment `yaml:"environment"`

	// StateDir holds the SQLite database and any other local state.
	StateDir string `yaml:"state_dir"`

	// IdentityFile is an age identity file used to open every
	// token_sealed value in the file.
	IdentityFile string `yaml:"identity_file"`

	Logging LoggingConfig   `yaml:"logging"`
	Storage StorageConfig   `yaml:"storage"`
	Cache   CacheConfig     `yaml:"cache"`
	Servers []ServerConfig  `yaml:"servers"`
	Tracked []TrackedConfig `yaml:"tracked"`
	Serve   ServeConfig     `yaml:"serve"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections that can be overridden per
// environment. Only non-zero fields take effect.
type ConfigOverrides struct {
	Logging *LoggingConfig `yaml:"logging,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Cache   *CacheConfig   `yaml:"cache,omitempty"`
	Serve   *ServeConfig   `yaml:"serve,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text, json or auto. Auto picks text on a terminal.
	Format string `yaml:"format"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	// Backend is memory, sqlite or redis.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// PoolSize is the number of SQLite connections.
	PoolSize int `yaml:"pool_size"`

	// Compression is none, lz4 or zstd. It applies to stored values.
	Compression string `yaml:"compression"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CacheConfig tunes the build-result cache.
type CacheConfig struct {
	// FinishedBuildsTTL is how long a finished-build list is served
	// without asking the server again.
	FinishedBuildsTTL time.Duration `yaml:"finished_builds_ttl"`
}

// ServerConfig describes one TeamCity server.
type ServerConfig struct {
	// ID names the server in cache namespaces. Required, unique.
	ID string `yaml:"id"`

	// URL is the server root, e.g. https://ci.ignite.apache.org.
	URL string `yaml:"url"`

	// Token is a TeamCity access token. Empty means guest access.
	Token string `yaml:"token"`

	// TokenSealed is Token encrypted with lib/sealed. It is opened
	// with the top-level identity_file.
	TokenSealed string `yaml:"token_sealed"`

	GitHub GitHubConfig `yaml:"github"`
}

// GitHubConfig links a server to the repository its pull requests
// come from.
type GitHubConfig struct {
	// Repo is owner/name.
	Repo string `yaml:"repo"`

	// APIURL defaults to https://api.github.com.
	APIURL string `yaml:"api_url"`

	Token       string `yaml:"token"`
	TokenSealed string `yaml:"token_sealed"`

	// StatusContext labels the commit statuses tcbot posts.
	StatusContext string `yaml:"status_context"`
}

// Enabled reports whether a repository is configured.
func (g GitHubConfig) Enabled() bool { return g.Repo != "" }

// OwnerRepo splits Repo into its owner and name.
func (g GitHubConfig) OwnerRepo() (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(g.Repo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}

// TrackedConfig is a suite on a branch that tcbot serve refreshes.
type TrackedConfig struct {
	// Server is the ServerConfig.ID the suite lives on.
	Server string `yaml:"server"`

	// Suite is the TeamCity build type id.
	Suite string `yaml:"suite"`

	// Branch is the TeamCity branch name, e.g. "<default>" or
	// "pull/5012/head".
	Branch string `yaml:"branch"`

	// Notify posts a commit status to the pull request behind a
	// pull/<n>/head branch after each refresh.
	Notify bool `yaml:"notify"`

	// Parameters are the build parameters reported with the suite.
	Parameters []BuildParameter `yaml:"parameters"`
}

// ServeConfig configures the tcbot serve loop.
type ServeConfig struct {
	// RefreshInterval is the time between refresh rounds.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// MetricsAddr is the listen address of the /metrics endpoint.
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// TopCount is how many tests each round's summary names.
	TopCount int `yaml:"top_count"`
}

// Default returns the configuration applied before the file is read.
func Default() *Config {
	return &Config{
		Environment: Development,
		StateDir:    "${XDG_STATE_HOME:-${HOME}/.local/state}/tcbot",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Storage: StorageConfig{
			Backend:     "sqlite",
			Path:        "${TCBOT_ROOT}/cache.db",
			PoolSize:    4,
			Compression: "zstd",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tcbot:",
			},
		},
		Cache: CacheConfig{
			FinishedBuildsTTL: 60 * time.Second,
		},
		Serve: ServeConfig{
			RefreshInterval: 5 * time.Minute,
			TopCount:        10,
		},
	}
}

// Load loads configuration from the file named by TCBOT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("TCBOT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TCBOT_CONFIG environment variable not set; " +
			"set it to the path of your tcbot.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the environment
// section and expands variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a YAML subset; the yaml tags serve both.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Logging: &LoggingConfig{Format: "json"},
			}
		}
	}
	if overrides == nil {
		return
	}

	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}

	if overrides.Storage != nil {
		if overrides.Storage.Backend != "" {
			c.Storage.Backend = overrides.Storage.Backend
		}
		if overrides.Storage.Path != "" {
			c.Storage.Path = overrides.Storage.Path
		}
		if overrides.Storage.PoolSize != 0 {
			c.Storage.PoolSize = overrides.Storage.PoolSize
		}
		if overrides.Storage.Compression != "" {
			c.Storage.Compression = overrides.Storage.Compression
		}
		if overrides.Storage.Redis.Addr != "" {
			c.Storage.Redis.Addr = overrides.Storage.Redis.Addr
		}
		if overrides.Storage.Redis.Password != "" {
			c.Storage.Redis.Password = overrides.Storage.Redis.Password
		}
		if overrides.Storage.Redis.DB != 0 {
			c.Storage.Redis.DB = overrides.Storage.Redis.DB
		}
		if overrides.Storage.Redis.Prefix != "" {
			c.Storage.Redis.Prefix = overrides.Storage.Redis.Prefix
		}
	}

	if overrides.Cache != nil && overrides.Cache.FinishedBuildsTTL != 0 {
		c.Cache.FinishedBuildsTTL = overrides.Cache.FinishedBuildsTTL
	}

	if overrides.Serve != nil {
		if overrides.Serve.RefreshInterval != 0 {
			c.Serve.RefreshInterval = overrides.Serve.RefreshInterval
		}
		if overrides.Serve.MetricsAddr != "" {
			c.Serve.MetricsAddr = overrides.Serve.MetricsAddr
		}
		if overrides.Serve.TopCount != 0 {
			c.Serve.TopCount = overrides.Serve.TopCount
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.StateDir = expandVars(c.StateDir, vars)
	vars["TCBOT_ROOT"] = c.StateDir

	c.IdentityFile = expandVars(c.IdentityFile, vars)
	c.Storage.Path = expandVars(c.Storage.Path, vars)
	c.Storage.Redis.Password = expandVars(c.Storage.Redis.Password, vars)
	for i := range c.Servers {
		server := &c.Servers[i]
		server.Token = expandVars(server.Token, vars)
		server.GitHub.Token = expandVars(server.GitHub.Token, vars)
	}
}

// varPattern matches ${VAR} and ${VAR:-default}. A default may itself
// hold one level of ${VAR}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^}$]|\$\{[^}]*\})*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		if strings.Contains(defaultValue, "${") {
			return expandVars(defaultValue, vars)
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors and reports all of
// them at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error"))
	}
	if !contains([]string{"text", "json", "auto"}, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of text, json, auto"))
	}

	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the sqlite backend"))
		}
		if c.Storage.PoolSize < 1 {
			errs = append(errs, fmt.Errorf("storage.pool_size must be positive"))
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("storage.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of memory, sqlite, redis (got %q)", c.Storage.Backend))
	}
	if !contains([]string{"none", "lz4", "zstd"}, c.Storage.Compression) {
		errs = append(errs, fmt.Errorf("storage.compression must be one of none, lz4, zstd"))
	}

	if c.Cache.FinishedBuildsTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.finished_builds_ttl must be positive"))
	}
	if c.Serve.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("serve.refresh_interval must be positive"))
	}

	needsIdentity := false
	serverIDs := make(map[string]bool, len(c.Servers))
	for i, server := range c.Servers {
		if server.ID == "" {
			errs = append(errs, fmt.Errorf("servers[%d].id is required", i))
		} else if serverIDs[server.ID] {
			errs = append(errs, fmt.Errorf("servers[%d].id %q is duplicated", i, server.ID))
		}
		serverIDs[server.ID] = true
		if server.URL == "" {
			errs = append(errs, fmt.Errorf("servers[%d].url is required", i))
		}
		if server.Token != "" && server.TokenSealed != "" {
			errs = append(errs, fmt.Errorf("servers[%d]: token and token_sealed are mutually exclusive", i))
		}
		if server.GitHub.Enabled() {
			if _, _, ok := server.GitHub.OwnerRepo(); !ok {
				errs = append(errs, fmt.Errorf("servers[%d].github.repo must be owner/name (got %q)", i, server.GitHub.Repo))
			}
			if server.GitHub.Token != "" && server.GitHub.TokenSealed != "" {
				errs = append(errs, fmt.Errorf("servers[%d].github: token and token_sealed are mutually exclusive", i))
			}
		}
		needsIdentity = needsIdentity || server.TokenSealed != "" || server.GitHub.TokenSealed != ""
	}
	if needsIdentity && c.IdentityFile == "" {
		errs = append(errs, fmt.Errorf("identity_file is required when a token_sealed value is set"))
	}

	for i, tracked := range c.Tracked {
		if !serverIDs[tracked.Server] {
			errs = append(errs, fmt.Errorf("tracked[%d].server %q is not a configured server", i, tracked.Server))
		}
		if tracked.Suite == "" {
			errs = append(errs, fmt.Errorf("tracked[%d].suite is required", i))
		}
		for j, parameter := range tracked.Parameters {
			if parameter.Name == "" {
				errs = append(errs, fmt.Errorf("tracked[%d].parameters[%d].name is required", i, j))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Server returns the server with the given id.
func (c *Config) Server(id string) (*ServerConfig, bool) {
	for i := range c.Servers {
		if c.Servers[i].ID == id {
			return &c.Servers[i], true
		}
	}
	return nil, false
}

// TeamCityToken returns the server's token, opening token_sealed with
// the identity file when set.
func (c *Config) TeamCityToken(server *ServerConfig) (string, error) {
	return c.resolveToken(server.Token, server.TokenSealed)
}

// GitHubToken returns the server's GitHub token, opening token_sealed
// with the identity file when set.
func (c *Config) GitHubToken(server *ServerConfig) (string, error) {
	return c.resolveToken(server.GitHub.Token, server.GitHub.TokenSealed)
}

func (c *Config) resolveToken(plain, sealedToken string) (string, error) {
	if sealedToken == "" {
		return plain, nil
	}
	if c.IdentityFile == "" {
		return "", fmt.Errorf("token_sealed is set but identity_file is not")
	}
	token, err := sealed.DecryptString(sealedToken, c.IdentityFile)
	if err != nil {
		return "", fmt.Errorf("opening sealed token: %w", err)
	}
	return token, nil
}

// EnsureStateDir creates the state directory when the sqlite backend
// needs it.
func (c *Config) EnsureStateDir() error {
	if c.Storage.Backend != "sqlite" {
		return nil
	}
	dir := filepath.Dir(c.Storage.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
