// Lifesync serves the unified life-tracking calendar: it keeps calendar
// events in step with meals, planned meals, fitness sessions and expenses,
// and exposes them over HTTP and as an iCalendar feed.
//
// Usage:
//
//	lifesync init   [--config <path>]                   # interactive first-run wizard
//	lifesync serve  [--config <path>] [--verbose]       # run the HTTP API
//	lifesync export --user <id> [--out <file>] [...]    # write the user's events as .ics
//	lifesync audit  --user <id> [--config <path>]       # list orphaned calendar events
//	lifesync version                                    # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/log/global"

	"github.com/njoerd114/lifesync/internal/api"
	"github.com/njoerd114/lifesync/internal/calsync"
	"github.com/njoerd114/lifesync/internal/config"
	"github.com/njoerd114/lifesync/internal/icsfeed"
	"github.com/njoerd114/lifesync/internal/setup"
	"github.com/njoerd114/lifesync/internal/store"
	"github.com/njoerd114/lifesync/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run() error {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "init":
		return runInit(os.Args[2:])
	case "serve":
		return runServe(os.Args[2:])
	case "export":
		return runExport(os.Args[2:])
	case "audit":
		return runAudit(os.Args[2:])
	case "version":
		fmt.Println("lifesync", version)
		return nil
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q, run 'lifesync help' for usage", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "lifesync: unified calendar for meals, fitness and expenses")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lifesync init   [--config ...]               Interactive first-run wizard")
	fmt.Fprintln(w, "  lifesync serve  [--config ...] [--verbose]   Run the HTTP API")
	fmt.Fprintln(w, "  lifesync export --user <id> [--out <file>]   Write a user's events as iCalendar")
	fmt.Fprintln(w, "  lifesync audit  --user <id>                  List calendar events whose source is gone")
	fmt.Fprintln(w, "  lifesync version                             Print version")
}

// --- Shared setup --------------------------------------------------------------

// commonFlags registers the flags every data-touching subcommand accepts.
func commonFlags(flags *flag.FlagSet) (cfgPath *string, verbose *bool) {
	defaultCfg, _ := config.DefaultPath()
	cfgPath = flags.String("config", defaultCfg, "path to config.yaml")
	verbose = flags.Bool("verbose", false, "enable debug logging")
	return cfgPath, verbose
}

// loadConfig reads .env, then the config file. A missing file at the default
// path falls back to built-in defaults; an explicitly named one must exist.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		if def, _ := config.DefaultPath(); path == def {
			return config.Default()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading config from %q: %w", path, err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Records also flow to the OTel log
// provider once telemetry is set up.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(telemetry.NewLogHandler(text, global.GetLoggerProvider()))
	slog.SetDefault(logger)
	return logger
}

// setupTelemetry starts OTel export if configured. The returned func flushes
// it and is always safe to call.
func setupTelemetry(cfg *config.Config, logger *slog.Logger) func() {
	if cfg.Telemetry == nil {
		return func() {}
	}
	shutdownTel, err := telemetry.Setup(context.Background(), telemetry.Config{
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Headers:        cfg.Telemetry.Headers,
	})
	if err != nil {
		logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		return func() {}
	}
	logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTel(flushCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}
}

// entityStore is a store backend the process owns.
type entityStore interface {
	calsync.EntityStore
	Close() error
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (entityStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		st, err := store.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Info("entity store opened", "driver", cfg.Driver)
		return st, nil
	default:
		path := cfg.Path
		if path == "" {
			var err error
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, fmt.Errorf("resolving database path: %w", err)
			}
		}
		st, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store at %q: %w", path, err)
		}
		logger.Info("entity store opened", "driver", config.DriverSQLite, "path", path)
		return st, nil
	}
}

func closeStore(st entityStore, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("closing entity store", "error", err)
	}
}

// --- Subcommands ---------------------------------------------------------------

// runInit launches the interactive setup wizard.
func runInit(args []string) error {
	flags := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath, verbose := commonFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	probe := func(ctx context.Context, sc config.StoreConfig) error {
		if sc.Driver == config.DriverSQLite {
			expanded, err := expandHome(sc.Path)
			if err != nil {
				return err
			}
			sc.Path = expanded
		}
		st, err := openStore(ctx, sc, logger)
		if err != nil {
			return err
		}
		return st.Close()
	}
	return setup.NewWizard(os.Stdin, os.Stdout, logger, probe).Run(ctx, *cfgPath)
}

// expandHome resolves a leading "~/" the way the config loader does.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// runServe starts the HTTP API and blocks until SIGINT/SIGTERM.
func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath, verbose := commonFlags(flags)
	baseURL := flags.String("base-url", "", "public URL prefixed to event links in the ICS feed")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	level := cfg.SlogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level)
	logger.Info("config loaded", "listen", cfg.Listen, "driver", cfg.Store.Driver)

	flush := setupTelemetry(cfg, logger)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	svc := calsync.NewService(st, logger)
	if cfg.AuditSchedule != "" {
		auditor, err := calsync.NewAuditor(svc, cfg.AuditSchedule, logger)
		if err != nil {
			return err
		}
		go func() { _ = auditor.Run(ctx) }()
		logger.Info("audit sweep enabled", "schedule", cfg.AuditSchedule)
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewServer(svc, logger, api.Options{BaseURL: *baseURL}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP shutdown: %w", err)
		}
	}
	logger.Info("shutdown complete")
	return nil
}

// runExport writes a user's events as an iCalendar document.
func runExport(args []string) error {
	flags := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath, verbose := commonFlags(flags)
	user := flags.String("user", "", "user id whose events to export (required)")
	out := flags.String("out", "-", "output file, - for stdout")
	baseURL := flags.String("base-url", "", "public URL prefixed to event links")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("--user is required")
	}

	svc, done, err := openService(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer done()

	evs, err := svc.ListEvents(context.Background(), *user, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	ics := icsfeed.Render(evs, icsfeed.Options{BaseURL: *baseURL})

	if *out == "-" {
		_, err = io.WriteString(os.Stdout, ics)
		return err
	}
	if err := os.WriteFile(*out, []byte(ics), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	slog.Info("calendar exported", "user", *user, "events", len(evs), "path", *out)
	return nil
}

// runAudit prints calendar events whose source entity no longer exists.
func runAudit(args []string) error {
	flags := flag.NewFlagSet("audit", flag.ExitOnError)
	cfgPath, verbose := commonFlags(flags)
	user := flags.String("user", "", "user id to audit (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("--user is required")
	}

	svc, done, err := openService(*cfgPath, *verbose)
	if err != nil {
		return err
	}
	defer done()

	orphans, err := svc.Audit(context.Background(), *user)
	if err != nil {
		return fmt.Errorf("auditing: %w", err)
	}
	if len(orphans) == 0 {
		fmt.Println("No orphaned calendar events.")
		return nil
	}
	fmt.Printf("%d orphaned calendar event(s):\n", len(orphans))
	for _, ev := range orphans {
		fmt.Printf("  %s  %-12s %-38s %s  %q\n",
			ev.ID, ev.Source, ev.SourceID, ev.StartTime.Format(time.RFC3339), ev.Title)
	}
	return nil
}

// openService wires config, logging and store for one-shot commands. Logs go
// to stderr at warn unless --verbose.
func openService(cfgPath string, verbose bool) (*calsync.Service, func(), error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level)

	st, err := openStore(context.Background(), cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}
	return calsync.NewService(st, logger), func() { closeStore(st, logger) }, nil
}
