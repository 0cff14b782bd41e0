package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/rtp/internal/config"
	"github.com/udisondev/rtp/internal/gateway"
	"github.com/udisondev/rtp/internal/history"
	"github.com/udisondev/rtp/internal/host"
	"github.com/udisondev/rtp/internal/rtp"
	"github.com/udisondev/rtp/internal/sched"
	"github.com/udisondev/rtp/internal/terrain"
	"github.com/udisondev/rtp/internal/world"
)

const ServerConfigPath = "config/rtpserver.yaml"

// shutdownTimeout bounds the final history flush.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ServerConfigPath
	if p := os.Getenv("RTP_SERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading server config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("rtp server starting", "log_level", cfg.LogLevel)

	pluginPath := cfg.PluginConfig
	if p := os.Getenv("RTP_PLUGIN_CONFIG"); p != "" {
		pluginPath = p
	}
	pluginCfg, err := config.LoadPlugin(pluginPath)
	if err != nil {
		return fmt.Errorf("loading plugin config: %w", err)
	}
	slog.Info("configs loaded",
		"bind", cfg.BindAddress,
		"port", cfg.Port,
		"target_world", pluginCfg.TargetWorld,
		"history", cfg.History.Backend)

	// Worlds
	worlds := make([]*terrain.World, 0, len(cfg.Worlds))
	defer func() {
		for _, w := range worlds {
			if err := w.Save(); err != nil {
				slog.Error("saving world", "world", w.Name(), "err", err)
			}
			w.Close()
		}
	}()
	hostWorlds := make([]world.World, 0, len(cfg.Worlds))
	for _, wc := range cfg.Worlds {
		w, err := terrain.New(wc, cfg.TerrainDir)
		if err != nil {
			return fmt.Errorf("creating world %s: %w", wc.Name, err)
		}
		worlds = append(worlds, w)
		hostWorlds = append(hostWorlds, w)
	}

	srv, err := host.NewServer(hostWorlds, cfg.DefaultWorld)
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}
	slog.Info("worlds loaded", "count", len(worlds), "default", cfg.DefaultWorld)

	// Teleport history
	backend, err := history.OpenBackend(ctx, cfg.History)
	if err != nil {
		return err
	}
	store, err := history.Open(ctx, backend, cfg.History.AutosaveInterval)
	if err != nil {
		backend.Close()
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("closing teleport history", "err", err)
		}
	}()

	loop := sched.NewLoop(cfg.TickInterval)
	pool := sched.NewPool(cfg.Workers)

	svc, err := rtp.NewService(pluginCfg, rtp.Deps{
		Loop:    loop,
		Pool:    pool,
		Players: &playersAdapter{srv: srv},
		Worlds:  srv,
		History: store,
	})
	if err != nil {
		return fmt.Errorf("creating random teleport: %w", err)
	}
	srv.Subscribe(svc)

	gw := gateway.New(net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port)), loop, srv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting primary loop", "interval", cfg.TickInterval)
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("primary loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := pool.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("background pool: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting history writer", "autosave", cfg.History.AutosaveInterval)
		if err := store.Run(gctx); err != nil {
			return fmt.Errorf("history writer: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting gateway", "port", cfg.Port)
		if err := gw.Run(gctx); err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
		return nil
	})

	err = g.Wait()

	// The loop has stopped; host and plugin state is ours now.
	svc.Shutdown()
	srv.QuitAll()

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("rtp server stopped")
	return nil
}

// playersAdapter adapts host.Server to rtp.Players.
// *host.Player → rtp.Player covariant return type.
type playersAdapter struct {
	srv *host.Server
}

func (a *playersAdapter) Player(id uuid.UUID) (rtp.Player, bool) {
	p, ok := a.srv.Player(id)
	if !ok {
		return nil, false
	}
	return p, true
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
