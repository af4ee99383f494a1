package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/tournament-backend/internal/battle"
	"github.com/DoyleJ11/tournament-backend/internal/command"
	"github.com/DoyleJ11/tournament-backend/internal/config"
	"github.com/DoyleJ11/tournament-backend/internal/httpapi"
	"github.com/DoyleJ11/tournament-backend/internal/hub"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/lobby"
	"github.com/DoyleJ11/tournament-backend/internal/metrics"
	"github.com/DoyleJ11/tournament-backend/internal/stats"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	ids := identity.NewRegistry(roles(cfg))

	var store stats.Store = stats.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		db, err := stats.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		store = db
	} else {
		logger.Warn("no database configured, tournament records are kept in memory")
	}

	reg := tournament.NewRegistry(tournament.Config{
		Formats:    cfg.Formats,
		Identities: ids,
		Rewards:    stats.NewLedger(store, cfg.PayoutMinSize, logger),
		Metrics:    m,
		Logger:     logger,
	})
	host := battle.NewHost(logger)
	router := command.NewRouter(command.Config{
		Registry:     reg,
		Identities:   ids,
		Rated:        cfg.Rated,
		JoinCooldown: cfg.JoinCooldown,
		Logger:       logger,
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	h := hub.NewHub(hubCtx, lobby.Deps{Registry: reg, Router: router, Host: host, Metrics: m, Logger: logger}, cfg.OfficialRooms)
	for _, code := range cfg.OfficialRooms {
		h.Ensure(code)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:        h,
			Registry:   reg,
			Host:       host,
			Identities: ids,
			Gatherer:   promReg,
			Logger:     logger,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		reg.Lockdown()
		host.Lockdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Send(hub.ShutdownHub{})
		select {
		case <-h.Done():
		case <-shutdownCtx.Done():
			logger.Warn("rooms did not stop before the shutdown timeout")
		}
		return err
	})
	return g.Wait()
}

func roles(cfg config.Config) map[identity.UserID]identity.Role {
	out := make(map[identity.UserID]identity.Role, len(cfg.Creators)+len(cfg.Moderators))
	for _, name := range cfg.Creators {
		out[identity.ToID(name)] = identity.RoleCreator
	}
	for _, name := range cfg.Moderators {
		out[identity.ToID(name)] = identity.RoleModerator
	}
	return out
}
