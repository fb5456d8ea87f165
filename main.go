package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/grabcast/grabcast/config"
	"github.com/grabcast/grabcast/db"
	"github.com/grabcast/grabcast/downloader"
	mcpServer "github.com/grabcast/grabcast/mcp"
	"github.com/grabcast/grabcast/registry"
	"github.com/grabcast/grabcast/storage"
)

// set via -ldflags at build time
var version = "dev"

func main() {
	var err error

	if len(os.Args) < 2 {
		err = runServe(nil)
	} else {
		switch os.Args[1] {
		case "serve":
			err = runServe(os.Args[2:])
		case "client":
			err = runClient(os.Args[2:])
		case "version", "-v", "--version":
			fmt.Printf("grabcast version %s\n", version)
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`grabcast - Media Downloader MCP Server

Usage:
  grabcast <command> [options]

Commands:
  serve     Start the MCP server (default)
  client    Run a one-shot /mcp client command
  version   Print version information
  help      Print this help message

Serve Options:
  -config string   Config file path (default: grabcast.yaml if present)

Client Examples:
  grabcast client "/mcp connect https://example.com/mcp my-token"
  grabcast client "/mcp use 1"
  grabcast client "/mcp list"
  grabcast client "/mcp diagnostics-level debug"`)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.DiagnosticsLevel)
	logger.Info().Str("version", version).Msg("grabcast - Media Downloader MCP Server")

	store, err := db.NewStore(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	// A diagnostics level set via /mcp overrides the config on restart.
	if level, err := store.GetSetting(registry.DiagnosticsLevelKey); err == nil && level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			zerolog.SetGlobalLevel(parsed)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}

	dl := downloader.New(downloader.Options{
		Format:      cfg.Format,
		CookiesFile: cfg.CookiesFile,
		Logger:      logger.With().Str("component", "downloader").Logger(),
	})

	server := mcpServer.NewServer(mcpServer.Options{
		Downloader: dl,
		Backend:    backend,
		Store:      store,
		OwnerPhone: cfg.OwnerPhone,
		AuthToken:  cfg.AuthToken,
		LinkTTL:    time.Duration(cfg.LinkTTLSecs) * time.Second,
		Logger:     logger.With().Str("component", "mcp").Logger(),
	})

	// Handle OS signals for clean shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info().Msg("shutting down")
		cancel()
	}()

	if cfg.Transport == "stdio" {
		return server.Run(ctx)
	}
	return server.RunHTTP(ctx, cfg.Host, cfg.Port)
}

func runClient(args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: grabcast client \"/mcp <command> ...\"")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.DiagnosticsLevel)

	store, err := db.NewStore(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	reg := registry.New(store, logger.With().Str("component", "registry").Logger())
	out, err := reg.Execute(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// setupLogger builds the root logger. Everything goes to stderr; stdout is
// reserved for the stdio MCP transport.
func setupLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// newBackend selects the storage backend from configuration.
func newBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Backend, error) {
	log := logger.With().Str("component", "storage").Logger()

	switch cfg.StorageBackend {
	case "local":
		baseURL := cfg.PublicBaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
		}
		return storage.NewLocal(cfg.FilesDir, baseURL, log)
	default:
		return storage.NewS3(ctx, storage.S3Config{
			AccessKey: cfg.WasabiAccessKey,
			SecretKey: cfg.WasabiSecretKey,
			Bucket:    cfg.WasabiBucket,
			Region:    cfg.WasabiRegion,
			Endpoint:  cfg.WasabiEndpoint,
			Logger:    log,
		})
	}
}
