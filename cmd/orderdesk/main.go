package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/orderdesk/internal/api"
	"github.com/dshills/orderdesk/internal/catalog"
	"github.com/dshills/orderdesk/internal/config"
	"github.com/dshills/orderdesk/internal/mcp"
	"github.com/dshills/orderdesk/internal/notify"
	"github.com/dshills/orderdesk/internal/orders"
	"github.com/dshills/orderdesk/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `Usage: orderdesk <command> [flags]

Commands:
  serve    Run the HTTP API
  mcp      Run the MCP admin tools on stdio
  token    Print an admin bearer token signed with ORDERDESK_JWT_SECRET

Flags:
  -config  Path to a YAML config file (default $ORDERDESK_CONFIG)
  --version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Handle version flag
	if os.Args[1] == "--version" {
		fmt.Printf("orderdesk\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol and token output
	log.SetOutput(os.Stderr)

	cmd, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime (token command)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	switch cmd {
	case "serve":
		err = runServe(cfg)
	case "mcp":
		err = runMCP(cfg)
	case "token":
		subject := fs.Arg(0)
		if subject == "" {
			subject = "admin"
		}
		var token string
		token, err = api.IssueAdminToken(cfg.Auth.JWTSecret, subject, *ttl)
		if err == nil {
			fmt.Println(token)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func openStore(cfg config.Config) (*storage.SQLiteStorage, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Printf("Database: %s (driver %s, build %s)", dbPath, storage.DriverName, storage.BuildMode)
	return store, nil
}

func runServe(cfg config.Config) error {
	log.Printf("orderdesk v%s starting HTTP API...", version)
	logger := cfg.Log.NewLogger(os.Stderr)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dispatcher, err := notify.NewDispatcherFromConfig(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Printf("Warning: %s is not set, admin routes will reject every request", config.EnvJWTSecret)
	}

	srv, err := api.NewServer(
		orders.NewService(store, dispatcher, logger),
		catalog.NewService(store, logger),
		logger,
		api.Options{
			Debug:                cfg.Server.Debug,
			JWTSecret:            cfg.Auth.JWTSecret,
			RateRPS:              cfg.RateLimit.RPS,
			RateBurst:            cfg.RateLimit.Burst,
			IdempotencyCacheSize: cfg.Idempotency.CacheSize,
		},
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down gracefully...")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = dispatcher.Close(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	// Pending confirmations are flushed after the last request has finished
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Printf("Notification shutdown: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

func runMCP(cfg config.Config) error {
	log.Printf("orderdesk MCP server v%s starting...", version)
	logger := cfg.Log.NewLogger(os.Stderr)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Admin tools never place orders, so no confirmation dispatcher is needed
	server := mcp.NewServer(
		orders.NewService(store, nil, logger),
		catalog.NewService(store, logger),
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Println("Received shutdown signal, stopping...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Println("Server stopped")
	return nil
}
