package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sashashura/netbox"
	"github.com/sashashura/netbox/api"
	"github.com/sashashura/netbox/db"
	"github.com/sashashura/netbox/listener"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configDir := flag.String("config-dir", "", "configuration directory (default ~/.config/netbox)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("netboxd %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	dir := *configDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Fatal().Err(err).Msg("resolving home directory failed")
		}
		dir = filepath.Join(home, ".config", "netbox")
	}

	app, err := netbox.New(
		netbox.WithLogger(logger),
		netbox.WithConfigDir(dir),
	)
	if err != nil {
		logger.Fatal().Err(err).Str("config_dir", dir).Msg("loading configuration failed")
	}

	level, err := zerolog.ParseLevel(app.Config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	err = app.WithOptions(
		netbox.WithLogger(logger),
		netbox.WithRepo(mustRepo(logger, app.Config.DatabasePath)),
		netbox.WithScriptEngine(time.Duration(app.Config.ScriptTimeout)*time.Second),
		netbox.WithWebhooks(app.Config.WebhookQueue),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("wiring application failed")
	}
	app.Start()
	defer app.Close()

	addr := net.JoinHostPort(app.Config.ListenAddress, app.Config.ListenPort)
	base, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("binding listener failed")
	}

	server := &http.Server{
		Handler:           api.NewServer(app).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown did not complete cleanly")
		}
	}()

	logger.Info().Str("addr", addr).Str("version", version).Msg("netboxd listening")
	err = server.Serve(listener.NewResilientListener(base, logger))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("netboxd stopped")
}

func mustRepo(logger zerolog.Logger, databasePath string) *db.Repository {
	conn, err := db.New(databasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", databasePath).Msg("opening database failed")
	}
	return db.NewRepository(conn)
}
