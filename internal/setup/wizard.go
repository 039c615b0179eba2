// Package setup implements "lifesync init", the interactive wizard that
// writes a first config file and checks the chosen store is reachable.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/njoerd114/lifesync/internal/config"
)

// ProbeFunc opens and closes the configured store to prove it is reachable.
type ProbeFunc func(ctx context.Context, sc config.StoreConfig) error

// ErrAborted is returned when the user leaves the wizard from the store menu.
var ErrAborted = errors.New("setup aborted")

// storeChoices is the backend menu; the last entry leaves the wizard.
var storeChoices = []string{"SQLite file (single machine)", "Postgres (hosted)", "Quit without saving"}

// Wizard guides the user through first-run configuration. Input is read line
// by line; end of input accepts every remaining default.
type Wizard struct {
	in     *bufio.Scanner
	w      io.Writer
	logger *slog.Logger
	probe  ProbeFunc
}

// NewWizard creates a Wizard wired to the given I/O and logger. probe may be
// nil to skip the connectivity check.
func NewWizard(r io.Reader, w io.Writer, logger *slog.Logger, probe ProbeFunc) *Wizard {
	return &Wizard{in: bufio.NewScanner(r), w: w, logger: logger, probe: probe}
}

// Run walks the user through listen address, store backend, and optional
// telemetry, then writes the config to cfgPath. An existing file is only
// replaced after confirmation.
func (wiz *Wizard) Run(ctx context.Context, cfgPath string) error {
	fmt.Fprintf(wiz.w, "\nWelcome to lifesync!\n")
	fmt.Fprintf(wiz.w, "This wizard writes %s.\n\n", cfgPath)

	if _, statErr := os.Stat(cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", cfgPath)
		if !wiz.yes("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return nil
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	cfg := &config.Config{}

	fmt.Fprintf(wiz.w, "Step 1/4: HTTP API\n")
	cfg.Listen = wiz.text("Listen address", "127.0.0.1:8080", false)
	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "Step 2/4: Entity store\n")
	sc, err := wiz.chooseStore(ctx)
	if err != nil {
		return err
	}
	cfg.Store = sc
	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "Step 3/4: Telemetry\n")
	if wiz.yes("Export traces, metrics and logs over OTLP?", false) {
		cfg.Telemetry = &config.TelemetryConfig{
			OTLPEndpoint: wiz.text("Collector endpoint (host:port)", "localhost:4317", false),
			Insecure:     wiz.yes("Collector has no TLS?", true),
		}
	}
	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "Step 4/4: Save configuration\n")
	if err := cfg.Write(cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  ✓ Config written to %s\n\n", cfgPath)
	fmt.Fprintf(wiz.w, "Start the API with: lifesync serve\n\n")
	return nil
}

// chooseStore shows the backend menu until the user picks a store that
// passes the probe, or quits. A failed probe returns to the menu.
func (wiz *Wizard) chooseStore(ctx context.Context) (config.StoreConfig, error) {
	for {
		fmt.Fprintf(wiz.w, "  Backend:\n")
		for i, c := range storeChoices {
			fmt.Fprintf(wiz.w, "    %d) %s\n", i+1, c)
		}
		answer, ok := wiz.line("  Choice [1-%d]: ", len(storeChoices))
		if !ok {
			return config.StoreConfig{}, fmt.Errorf("selecting store backend: %w", io.ErrUnexpectedEOF)
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(storeChoices) {
			fmt.Fprintf(wiz.w, "  (enter a number between 1 and %d)\n", len(storeChoices))
			continue
		}

		var sc config.StoreConfig
		switch n {
		case 1:
			sc.Driver = config.DriverSQLite
			sc.Path = wiz.text("Database file", "~/.local/share/lifesync/lifesync.db", false)
		case 2:
			sc.Driver = config.DriverPostgres
			sc.DSN = wiz.text("Connection string (postgres://...)", os.Getenv(config.EnvDatabaseURL), true)
		default:
			return config.StoreConfig{}, ErrAborted
		}

		if wiz.probe == nil {
			return sc, nil
		}
		fmt.Fprintf(wiz.w, "  Connecting...")
		if err := wiz.probe(ctx, sc); err != nil {
			fmt.Fprintf(wiz.w, " ✗ %v\n", err)
			wiz.logger.Warn("store probe failed", "driver", sc.Driver, "error", err)
			continue
		}
		fmt.Fprintf(wiz.w, " ✓\n")
		return sc, nil
	}
}

// line prints a prompt and reads one trimmed line. ok is false at end of
// input.
func (wiz *Wizard) line(format string, args ...any) (string, bool) {
	fmt.Fprintf(wiz.w, format, args...)
	if !wiz.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(wiz.in.Text()), true
}

// text asks for a value, returning def on an empty answer. An empty def
// makes the value required. A secret def is offered as "keep current" and
// never printed.
func (wiz *Wizard) text(label, def string, secret bool) string {
	hint := ""
	switch {
	case def != "" && secret:
		hint = " [keep current]"
	case def != "":
		hint = " [" + def + "]"
	}
	for {
		val, ok := wiz.line("  %s%s: ", label, hint)
		if !ok {
			return def
		}
		if val != "" {
			return val
		}
		if def != "" {
			return def
		}
		fmt.Fprintf(wiz.w, "  (required, please enter a value)\n")
	}
}

// yes asks a y/n question; an empty answer or end of input gives def.
func (wiz *Wizard) yes(label string, def bool) bool {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	val, ok := wiz.line("  %s %s: ", label, hint)
	if !ok || val == "" {
		return def
	}
	val = strings.ToLower(val)
	return val == "y" || val == "yes"
}
