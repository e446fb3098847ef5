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
	"github.com/realmbroker/realmd/internal/login"
	"github.com/realmbroker/realmd/internal/realmlink"
)

const ConfigPath = "config/loginserver.yaml"

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

	slog.Info("login server starting")

	cfgPath := ConfigPath
	if p := os.Getenv("REALMD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLoginServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port,
		"realm_uplink", fmt.Sprintf("%s:%d", cfg.RealmUplinkHost, cfg.RealmUplinkPort))

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

	accounts := db.NewAccountRepository(database.Pool())
	realms := db.NewRealmRepository(database.Pool())

	clientServer := login.NewServer(cfg, accounts, realms)
	uplinkServer := realmlink.NewServer(cfg, accounts, realms)

	errCh := make(chan error, 2)
	go func() { errCh <- clientServer.Run(ctx) }()
	go func() { errCh <- uplinkServer.Run(ctx) }()

	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("login service stopped: %w", err)
	case <-ctx.Done():
		clientServer.Close()
		uplinkServer.Close()
		return nil
	}
}
