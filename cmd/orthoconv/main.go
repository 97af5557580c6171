package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/orthoconv/pkg/api"
	"github.com/hazyhaar/orthoconv/pkg/bundle"
	"github.com/hazyhaar/orthoconv/pkg/importer"
	"github.com/mark3labs/mcp-go/server"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "convert":
		err = cmdConvert(os.Args[2:])
	case "languages":
		err = cmdLanguages(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "orthoconv %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: orthoconv <command> [flags]

Commands:
  serve      Start the HTTP server
  mcp        Serve the MCP tools on stdio
  convert    Convert text from the command line or stdin
  languages  List convertible languages
  import     Manage and download bundle sources
  version    Print the version
`)
}

// setup loads the config, builds the logger and loads the bundle registry.
func setup(cfgPath string) (config, *slog.Logger, *bundle.Registry, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return cfg, nil, nil, err
	}
	reg := bundle.NewRegistry(cfg.DataDir, logger, cfg.converterDefaults()...)
	if err := reg.Load(); err != nil {
		return cfg, logger, nil, fmt.Errorf("load bundles: %w", err)
	}
	logger.Info("bundles loaded", "bundles", reg.BundleCount(), "languages", reg.LanguageCount())
	return cfg, logger, reg, nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, logger, reg, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	interval, err := cfg.checkInterval()
	if err != nil {
		return err
	}
	sdb, err := openSources(cfg.SourcesDB, logger)
	if err != nil {
		return err
	}

	var opts []api.RouterOption
	if sdb != nil {
		defer sdb.Close()
		opts = append(opts, api.WithUpstream(sdb))
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(reg, logger, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP: hot reload bundles.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading bundles")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed, keeping previous bundles", "error", err)
			} else {
				logger.Info("bundles reloaded", "bundles", reg.BundleCount(), "languages", reg.LanguageCount())
			}
		}
	}()

	if sdb != nil && interval > 0 {
		go importer.NewChecker(sdb, logger, interval).Run(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("orthoconv listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openSources opens the sources database when it exists. A missing database
// returns nil: nothing was ever registered for import.
func openSources(path string, logger *slog.Logger) (*importer.SourceDB, error) {
	if _, err := os.Stat(path); err != nil {
		logger.Debug("no sources database, upstream checks disabled", "path", path)
		return nil, nil
	}
	return importer.OpenSourceDB(path)
}

func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	_, logger, reg, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	logger.Info("serving MCP on stdio")
	return server.ServeStdio(api.NewMCPServer(reg, logger, version))
}
