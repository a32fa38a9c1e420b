// SPDX-License-Identifier: MIT

// Command assurance-agent runs the remote-debugging session client as a
// local daemon: it maintains the session to the inspection service and
// exposes a loopback control/metrics listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adobe/aepsdk-assurance-go/internal/api"
	"github.com/adobe/aepsdk-assurance-go/internal/config"
	"github.com/adobe/aepsdk-assurance-go/internal/hostinfo"
	alog "github.com/adobe/aepsdk-assurance-go/internal/log"
	"github.com/adobe/aepsdk-assurance-go/internal/queue"
	"github.com/adobe/aepsdk-assurance-go/internal/session"
	"github.com/adobe/aepsdk-assurance-go/internal/store"
	"github.com/adobe/aepsdk-assurance-go/internal/transport"
	"github.com/adobe/aepsdk-assurance-go/internal/urlutil"
	"github.com/adobe/aepsdk-assurance-go/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		logger := alog.WithComponent("main")
		logger.Error().Err(err).Msg("agent exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	alog.Configure(alog.Config{
		Level:   cfg.LogLevel,
		Service: "assurance-agent",
		Version: version.Version,
	})
	logger := alog.WithComponent("main")

	var connStore store.ConnectionStore
	if cfg.DataDir != "" {
		badgerStore, err := store.NewBadger(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open connection store: %w", err)
		}
		defer func() { _ = badgerStore.Close() }()
		connStore = badgerStore
	} else {
		logger.Warn().Msg("no data directory configured, session URL will not survive restarts")
		connStore = store.NewMemory()
	}

	pool := queue.NewPool(cfg.PoolSize)
	defer pool.Shutdown()

	clientID := uuid.NewString()
	info := &hostinfo.Provider{
		Version: version.Version,
		Collector: &hostinfo.Default{
			AppName:    cfg.AppName,
			AppVersion: cfg.AppVersion,
		},
	}

	factory := func(id string, env urlutil.Environment, onTerminated func()) session.ActiveSession {
		return session.New(session.Options{
			ID:           id,
			Environment:  env,
			OrgID:        cfg.OrgID,
			ClientID:     clientID,
			RetryDelay:   cfg.ReconnectDelay,
			Pool:         pool,
			Channels:     func(d transport.Delegate) transport.Channel { return transport.NewWebsocketChannel(d) },
			Store:        connStore,
			Info:         info,
			OnTerminated: onTerminated,
		})
	}

	orchestrator := session.NewOrchestrator(factory, connStore, nil)
	if orchestrator.ReconnectToStoredSession() {
		logger.Info().Msg("restored session from previous run")
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(orchestrator, urlutil.ParseEnvironment(cfg.Environment)).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("control listener up")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		orchestrator.TerminateSession()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
