package setup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/njoerd114/lifesync/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWizard_SQLite(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvListen, "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	dbPath := filepath.Join(t.TempDir(), "life.db")

	input := strings.Join([]string{
		"",     // listen: default
		"1",    // sqlite
		dbPath, // path
		"n",    // no telemetry
	}, "\n") + "\n"

	var probed config.StoreConfig
	probe := func(_ context.Context, sc config.StoreConfig) error {
		probed = sc
		return nil
	}

	var out bytes.Buffer
	wiz := NewWizard(strings.NewReader(input), &out, testLogger, probe)
	if err := wiz.Run(context.Background(), cfgPath); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}

	if probed.Driver != config.DriverSQLite || probed.Path != dbPath {
		t.Errorf("probed = %+v", probed)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" || cfg.Store.Path != dbPath || cfg.Telemetry != nil {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestWizard_PostgresRetryThenTelemetry(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvListen, "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	input := strings.Join([]string{
		"0.0.0.0:9000",
		"2", "postgres://bad", // first attempt fails, back to the menu
		"2", "postgres://good",
		"y", "collector:4317", "n", // telemetry with TLS
	}, "\n") + "\n"

	calls := 0
	probe := func(_ context.Context, sc config.StoreConfig) error {
		calls++
		if sc.DSN == "postgres://bad" {
			return errors.New("connection refused")
		}
		return nil
	}

	var out bytes.Buffer
	if err := NewWizard(strings.NewReader(input), &out, testLogger, probe).Run(context.Background(), cfgPath); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if calls != 2 {
		t.Errorf("probe calls = %d, want 2", calls)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.DSN != "postgres://good" || cfg.Store.Driver != config.DriverPostgres {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Telemetry == nil || cfg.Telemetry.OTLPEndpoint != "collector:4317" || cfg.Telemetry.Insecure {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestWizard_KeepsExisting(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("listen: \"127.0.0.1:1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := NewWizard(strings.NewReader("n\n"), &out, testLogger, nil).Run(context.Background(), cfgPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, _ := os.ReadFile(cfgPath)
	if !strings.Contains(string(data), "127.0.0.1:1") {
		t.Errorf("config overwritten: %s", data)
	}
}

func TestWizard_StoreMenuRejectsOutOfRange(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvListen, "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	dbPath := filepath.Join(t.TempDir(), "life.db")

	input := strings.Join([]string{"", "7", "x", "1", dbPath, "n"}, "\n") + "\n"
	var out bytes.Buffer
	if err := NewWizard(strings.NewReader(input), &out, testLogger, nil).Run(context.Background(), cfgPath); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if strings.Count(out.String(), "enter a number") != 2 {
		t.Errorf("expected two retry hints:\n%s", out.String())
	}
}

func TestWizard_QuitFromStoreMenu(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	err := NewWizard(strings.NewReader("\n3\n"), &out, testLogger, nil).Run(context.Background(), cfgPath)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if _, statErr := os.Stat(cfgPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("config written after quit: %v", statErr)
	}
}

func TestWizard_SecretDSNKeptAndHidden(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://env-secret")
	t.Setenv(config.EnvListen, "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	input := strings.Join([]string{"", "2", "", "n"}, "\n") + "\n"
	if err := NewWizard(strings.NewReader(input), &out, testLogger, nil).Run(context.Background(), cfgPath); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if strings.Contains(out.String(), "postgres://env-secret") {
		t.Error("current DSN echoed in prompt")
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "postgres://env-secret") {
		t.Errorf("DSN not kept:\n%s", data)
	}
}
