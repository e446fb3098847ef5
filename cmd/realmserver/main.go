package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/realmbroker/realmd/internal/config"
	"github.com/realmbroker/realmd/internal/db"
	"github.com/realmbroker/realmd/internal/proxy"
	"github.com/realmbroker/realmd/internal/realm"
	"github.com/realmbroker/realmd/internal/realmlink"
	"github.com/realmbroker/realmd/internal/worldlink"
)

const ConfigPath = "config/realmserver.yaml"

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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("realm server starting")

	cfgPath := ConfigPath
	if p := os.Getenv("REALMD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadRealmServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded",
		"bind", cfg.BindAddress, "port", cfg.Port,
		"worldlink_bind", cfg.WorldLinkBindAddress, "worldlink_port", cfg.WorldLinkPort,
		"login_uplink", fmt.Sprintf("%s:%d", cfg.LoginHost, cfg.LoginPort))

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	characters := db.NewCharacterRepository(database.Pool())
	friends := db.NewFriendRepository(database.Pool())
	groups := db.NewGroupRepository(database.Pool())

	uplink, err := realmlink.DialRealm(ctx, realmlink.RealmUplinkConfig{
		LoginHost:      cfg.LoginHost,
		LoginPort:      cfg.LoginPort,
		InternalName:   cfg.InternalName,
		VisibleName:    cfg.VisibleName,
		UplinkPassword: cfg.UplinkPassword,
		RealmID:        cfg.RealmID,
		BindAddress:    cfg.BindAddress,
		Port:           cfg.Port,
	})
	if err != nil {
		return fmt.Errorf("dialing login uplink: %w", err)
	}
	defer uplink.Close()
	slog.Info("login uplink established")

	go uplink.RunKeepAlive(ctx, cfg.UplinkKeepAlive, func(err error) {
		slog.Warn("realm uplink keep-alive failed", "error", err)
	})

	guard := proxy.NewGuard()

	// worldServer and realmServer close a reference cycle: worldServer
	// needs realmServer as its ClientRouter, realmServer needs
	// worldServer to resolve/push to world nodes. Both are constructed
	// with their peer supplied after the fact via the two-step
	// NewServer/attach shape below instead of a circular constructor.
	worldServer := worldlink.NewServer(cfg, nil, guard)
	realmServer := realm.NewServer(cfg, uplink, worldServer, guard, characters, friends, groups)
	worldServer.SetRouter(realmServer)

	errCh := make(chan error, 2)
	go func() { errCh <- realmServer.Run(ctx) }()
	go func() { errCh <- worldServer.Run(ctx) }()

	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("realm service stopped: %w", err)
	case <-ctx.Done():
		realmServer.Close()
		worldServer.Close()
		return nil
	}
}
