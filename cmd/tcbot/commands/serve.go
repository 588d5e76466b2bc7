// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/tcbot-project/tcbot/cmd/tcbot/cli"
	"github.com/tcbot-project/tcbot/lib/config"
	"github.com/tcbot-project/tcbot/lib/github"
	"github.com/tcbot-project/tcbot/lib/prnotify"
	"github.com/tcbot-project/tcbot/lib/tccache"
	"github.com/tcbot-project/tcbot/lib/teamcity"
)

type serveParams struct {
	ConfigFlags
	Interval    time.Duration `flag:"interval" desc:"refresh interval (overrides serve.refresh_interval)"`
	MetricsAddr string        `flag:"metrics-addr" desc:"serve /metrics on this address (overrides serve.metrics_addr)"`
	Once        bool          `flag:"once" desc:"run a single refresh round and exit"`
}

func serveCommand() *cli.Command {
	var params serveParams
	return &cli.Command{
		Name:    "serve",
		Summary: "Keep tracked suites fresh and report on pull requests",
		Description: `Refresh every tracked suite on serve.refresh_interval.

Each round reloads the finished-build list, stores compact records for
the newest 50 builds, logs the suite's run history and, for tracked pull request
branches with notify set, posts a commit status for the newest build.
After the suites, the most failing cached tests of each server are
logged. With serve.metrics_addr set, cache counters are exported at
/metrics.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("serve", &params) },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return withEnvironment(ctx, params.ConfigFlags, func(env *environment) error {
				if params.Interval > 0 {
					env.cfg.Serve.RefreshInterval = params.Interval
				}
				if params.MetricsAddr != "" {
					env.cfg.Serve.MetricsAddr = params.MetricsAddr
				}
				refresher, err := newRefresher(env)
				if err != nil {
					return err
				}
				if params.Once {
					refresher.round(ctx)
					return nil
				}
				return serve(ctx, env, refresher)
			})
		},
	}
}

func serve(ctx context.Context, env *environment, r *refresher) error {
	errorCh := make(chan error, 1)
	var metricsServer *http.Server
	if addr := env.cfg.Serve.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(env.registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			env.logger.Info("metrics server starting", "addr", addr)
			errorCh <- metricsServer.ListenAndServe()
		}()
	}

	ticker := env.clock.NewTicker(env.cfg.Serve.RefreshInterval)
	defer ticker.Stop()
	env.logger.Info("serving", "tracked", len(env.cfg.Tracked), "interval", env.cfg.Serve.RefreshInterval)
	r.round(ctx)

	for {
		select {
		case <-ctx.Done():
			if metricsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					env.logger.Error("metrics server shutdown failed", "error", err)
				}
			}
			env.logger.Info("stopped")
			return nil
		case err := <-errorCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
		case <-ticker.C:
			r.round(ctx)
		}
	}
}

// refresher runs refresh rounds over the tracked suites.
type refresher struct {
	env       *environment
	logger    *slog.Logger
	notifiers map[string]*prnotify.Notifier
	random    *rand.Rand

	// notified remembers the newest build already reported per
	// tracked suite, so each build is posted once.
	notified map[teamcity.SuiteInBranch]int
}

func newRefresher(env *environment) (*refresher, error) {
	r := &refresher{
		env:       env,
		logger:    env.logger,
		notifiers: make(map[string]*prnotify.Notifier),
		random:    rand.New(rand.NewPCG(uint64(env.clock.Now().UnixNano()), 0)),
		notified:  make(map[teamcity.SuiteInBranch]int),
	}
	httpClient := &http.Client{Timeout: httpTimeout}
	for i := range env.cfg.Servers {
		serverConfig := &env.cfg.Servers[i]
		if !serverConfig.GitHub.Enabled() {
			continue
		}
		token, err := env.cfg.GitHubToken(serverConfig)
		if err != nil {
			return nil, fmt.Errorf("server %s: %w", serverConfig.ID, err)
		}
		if token == "" {
			r.logger.Warn("no GitHub token, pull request notification disabled", "server", serverConfig.ID)
			continue
		}
		client, err := github.NewClient(github.Config{
			BaseURL:    serverConfig.GitHub.APIURL,
			Token:      token,
			HTTPClient: httpClient,
			Clock:      env.clock,
			Logger:     env.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("server %s: %w", serverConfig.ID, err)
		}
		owner, repo, _ := serverConfig.GitHub.OwnerRepo()
		notifier, err := prnotify.New(client, prnotify.Config{
			Owner:   owner,
			Repo:    repo,
			Context: serverConfig.GitHub.StatusContext,
			Logger:  env.logger,
		})
		if err != nil {
			return nil, err
		}
		r.notifiers[serverConfig.ID] = notifier
	}
	return r, nil
}

// round refreshes every tracked suite, then logs each server's most
// failing tests. Failures are logged and do not stop the round.
func (r *refresher) round(ctx context.Context) {
	started := r.env.clock.Now()
	for _, tracked := range r.env.cfg.Tracked {
		if ctx.Err() != nil {
			return
		}
		if err := r.refreshSuite(ctx, tracked); err != nil {
			r.logger.Error("refresh failed",
				"server", tracked.Server, "suite", tracked.Suite, "branch", tracked.Branch,
				"kind", tccache.KindOf(err).String(), "error", err)
		}
	}
	for _, id := range r.env.serverIDs() {
		top, err := r.env.servers[id].TopFailing(ctx, r.env.cfg.Serve.TopCount)
		if err != nil {
			r.logger.Error("test analysis failed", "server", id, "error", err)
			continue
		}
		for rank, stat := range top {
			r.logger.Info("failing test", "server", id, "rank", rank+1, "test", stat.Name,
				"fail_rate", stat.FailRate(), "runs", stat.Runs)
		}
	}
	r.logger.Info("refresh round complete", "duration", r.env.clock.Now().Sub(started))
}

func (r *refresher) refreshSuite(ctx context.Context, tracked config.TrackedConfig) error {
	server, ok := r.env.servers[tracked.Server]
	if !ok {
		return fmt.Errorf("unknown server %q", tracked.Server)
	}
	branch := tracked.Branch
	if branch == "" {
		branch = "<default>"
	}
	key := teamcity.SuiteInBranch{SuiteID: tracked.Suite, Branch: branch}
	logger := r.logger.With("server", tracked.Server, "suite", key.String())

	// Stores compact records of the newest builds as a side effect.
	history, err := server.SuiteHistory(ctx, tracked.Suite, branch)
	if err != nil {
		return err
	}
	logger.Info("suite history", "runs", history.Runs,
		"fail_rate", history.FailRate(), "critical_fail_rate", history.CriticalFailRate(),
		"latest", history.LatestString())

	if len(tracked.Parameters) > 0 {
		attrs := make([]any, 0, 2*len(tracked.Parameters))
		for _, parameter := range tracked.Parameters {
			if value, ok := parameter.GenerateValue(r.random); ok {
				attrs = append(attrs, parameter.Name, value)
			}
		}
		logger.Debug("next run parameters", attrs...)
	}

	if !tracked.Notify || history.Runs == 0 {
		return nil
	}
	notifier, ok := r.notifiers[tracked.Server]
	if !ok {
		return nil
	}
	newest := history.LastBuildID
	if r.notified[key] == newest {
		return nil
	}
	record, err := server.GetFatBuild(ctx, newest)
	if err != nil {
		return err
	}
	serverConfig, _ := r.env.cfg.Server(tracked.Server)
	summary := prnotify.SummaryOf(r.env.strings, record, buildWebURL(serverConfig.URL, newest))
	if notifier.Notify(ctx, branch, summary) {
		r.notified[key] = newest
	}
	return nil
}
