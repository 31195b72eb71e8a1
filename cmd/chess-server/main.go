package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-PvP-server/internal/archive"
	appcfg "github.com/park285/Cheese-PvP-server/internal/config"
	"github.com/park285/Cheese-PvP-server/internal/eventbus"
	"github.com/park285/Cheese-PvP-server/internal/gateway"
	"github.com/park285/Cheese-PvP-server/internal/httpapi"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/internal/router"
	"github.com/park285/Cheese-PvP-server/internal/webhook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		obslog.L().Fatal("config_error", zap.Error(err))
	}
	if err := run(cfg); err != nil {
		obslog.L().Error("server_exit", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
}

func run(cfg *appcfg.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}
	pres := chesspresenter.NewPresenter(cat)
	mgr := pvpchess.NewManager(pvpchess.WithMaxSessions(cfg.MaxSessions))

	g, gctx := errgroup.WithContext(ctx)

	var (
		sinks  []router.EventSink
		events httpapi.EventLog
	)
	if cfg.RedisURL != "" {
		pub, err := eventbus.Dial(ctx, cfg.RedisURL, cfg.EventChannelPrefix)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		events = pub
		obslog.L().Info("eventbus_enabled", zap.String("prefix", cfg.EventChannelPrefix))
	}
	if cfg.WebhookURL != "" {
		hook := webhook.NewSink(webhook.NewClient(cfg.WebhookURL,
			webhook.WithTimeout(cfg.WebhookTimeout),
			webhook.WithRetry(cfg.WebhookRetries),
			webhook.WithToken(cfg.WebhookToken),
		), 0)
		sinks = append(sinks, hook)
		g.Go(func() error { return hook.Run(gctx) })
		obslog.L().Info("webhook_enabled")
	}
	if cfg.DatabaseURL != "" {
		repo, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		arch := archive.NewSink(repo, 0)
		sinks = append(sinks, arch)
		g.Go(func() error { return arch.Run(gctx) })
		obslog.L().Info("archive_enabled")
	}

	hub := gateway.NewHub()
	rt := router.New(mgr, hub, router.WithSinks(sinks...), router.WithPresenter(pres))
	ws := gateway.NewHandler(hub, rt, gateway.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		PingInterval:   cfg.WSPingInterval,
		SendBuffer:     cfg.WSSendBuffer,
		Presenter:      pres,
	})
	api := httpapi.New(httpapi.Deps{
		Manager:     mgr,
		Presenter:   pres,
		WS:          ws,
		Connections: hub.Count,
		Events:      events,
		CORSOrigin:  cfg.CORSOrigin,
		StaticDir:   cfg.StaticDir,
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				rt.Sweep(gctx, cfg.SessionIdleTTL)
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		obslog.L().Info("server_shutdown", zap.Int("sessions", mgr.Count()), zap.Int("connections", hub.Count()))
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		hub.Shutdown(sctx)
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
