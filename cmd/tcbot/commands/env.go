// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/tcbot-project/tcbot/cmd/tcbot/cli"
	"github.com/tcbot-project/tcbot/lib/clock"
	"github.com/tcbot-project/tcbot/lib/compress"
	"github.com/tcbot-project/tcbot/lib/config"
	"github.com/tcbot-project/tcbot/lib/intern"
	"github.com/tcbot-project/tcbot/lib/kvstore"
	"github.com/tcbot-project/tcbot/lib/tccache"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// httpTimeout bounds every TeamCity and GitHub request.
const httpTimeout = 2 * time.Minute

// ConfigFlags selects the configuration file and the server a query
// command talks to.
type ConfigFlags struct {
	Path   string
	Server string
}

// AddFlags binds --config and --server.
func (f *ConfigFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.Path, "config", "c", "", "configuration file (default $TCBOT_CONFIG)")
	flagSet.StringVarP(&f.Server, "server", "s", "", "server id (default: the only configured server)")
}

// environment is everything a command needs once the configuration
// has been loaded: the store, the string table and one cache-backed
// server per configured TeamCity server.
type environment struct {
	cfg      *config.Config
	logger   *slog.Logger
	clock    clock.Clock
	store    kvstore.Store
	strings  *intern.Table
	registry *prometheus.Registry
	servers  map[string]*tccache.Server
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// openEnvironment loads the configuration and opens the store.
func openEnvironment(ctx context.Context, flags ConfigFlags) (*environment, error) {
	cfg, err := loadConfig(flags.Path)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	compression, err := compress.ParseTag(cfg.Storage.Compression)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureStateDir(); err != nil {
		return nil, err
	}

	store, err := kvstore.Open(ctx, kvstore.Options{
		Backend: cfg.Storage.Backend,
		SQLite: kvstore.SQLiteConfig{
			Path:     cfg.Storage.Path,
			PoolSize: cfg.Storage.PoolSize,
			Logger:   logger,
		},
		Redis: kvstore.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
			Logger:   logger,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}
	table, err := intern.Open(ctx, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading string table: %w", err)
	}

	env := &environment{
		cfg:      cfg,
		logger:   logger,
		clock:    clock.Real(),
		store:    store,
		strings:  table,
		registry: prometheus.NewRegistry(),
		servers:  make(map[string]*tccache.Server, len(cfg.Servers)),
	}
	metrics := tccache.NewMetrics(env.registry)
	httpClient := &http.Client{Timeout: httpTimeout}

	for i := range cfg.Servers {
		serverConfig := &cfg.Servers[i]
		token, err := cfg.TeamCityToken(serverConfig)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("server %s: %w", serverConfig.ID, err)
		}
		client, err := teamcity.NewClient(teamcity.Config{
			ServerID:   serverConfig.ID,
			BaseURL:    serverConfig.URL,
			Token:      token,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			env.Close()
			return nil, err
		}
		server, err := tccache.NewServer(tccache.ServerConfig{
			ServerID:          serverConfig.ID,
			Source:            client,
			Store:             store,
			Strings:           table,
			Clock:             env.clock,
			Logger:            logger,
			FinishedBuildsTTL: cfg.Cache.FinishedBuildsTTL,
			Compression:       compression,
			Metrics:           metrics,
		})
		if err != nil {
			env.Close()
			return nil, err
		}
		env.servers[serverConfig.ID] = server
	}
	return env, nil
}

// server returns the server named id, or the only server when id is
// empty.
func (env *environment) server(id string) (*tccache.Server, error) {
	if id == "" {
		if len(env.servers) == 1 {
			for _, server := range env.servers {
				return server, nil
			}
		}
		return nil, fmt.Errorf("--server is required with %d configured servers (%s)",
			len(env.servers), strings.Join(env.serverIDs(), ", "))
	}
	server, ok := env.servers[id]
	if !ok {
		return nil, fmt.Errorf("unknown server %q (configured: %s)", id, strings.Join(env.serverIDs(), ", "))
	}
	return server, nil
}

func (env *environment) serverIDs() []string {
	ids := make([]string, 0, len(env.servers))
	for id := range env.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close releases the store.
func (env *environment) Close() error {
	return env.store.Close()
}

// withEnvironment opens the environment, runs fn, and closes it.
func withEnvironment(ctx context.Context, flags ConfigFlags, fn func(*environment) error) error {
	env, err := openEnvironment(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}

// parseBuildID parses a positional build id argument.
func parseBuildID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("exactly one build id is required")
	}
	buildID, err := strconv.Atoi(args[0])
	if err != nil || buildID <= 0 {
		return 0, fmt.Errorf("invalid build id %q", args[0])
	}
	return buildID, nil
}

// buildWebURL links to a build's page in the TeamCity UI.
func buildWebURL(serverURL string, buildID int) string {
	return strings.TrimRight(serverURL, "/") + "/viewLog.html?buildId=" + strconv.Itoa(buildID)
}
