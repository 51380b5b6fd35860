package cli

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/adapters/adb"
	"github.com/aretw0/ussdflow/pkg/adapters/sim"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Host = config.HostSim
	cfg.Store = config.StoreConfig{Driver: config.StoreMemory}
	cfg.Ledger = config.LedgerConfig{Driver: config.LedgerMemory, MaskPII: true}
	cfg.Templates.Path = filepath.Join(dir, "codes.yaml")
	return cfg
}

func build(t *testing.T, cfg *config.Config, deps Deps) *App {
	t.Helper()
	app, err := Build(cfg, logging.NewNop(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func sampleParams() *domain.TransactionParameters {
	return &domain.TransactionParameters{Type: domain.CashOut, Phone: "0244123456", Amount: "10", PIN: "4321"}
}

func TestBuild_Memory(t *testing.T) {
	app := build(t, testConfig(t), Deps{})

	assert.IsType(t, &sim.Host{}, app.Host)
	assert.NotNil(t, app.Controller)
	assert.NotNil(t, app.Metrics)
	code, err := app.Templates.Render(domain.Balance, templates.MTN, templates.Values{})
	require.NoError(t, err)
	assert.Equal(t, "*170*7#", code)
}

func TestBuild_PIILedger(t *testing.T) {
	app := build(t, testConfig(t), Deps{})
	ctx := context.Background()

	require.NoError(t, app.Ledger.Record(ctx, domain.Outcome{ID: "o-1", Phone: "0244123456"}))
	got, err := app.Ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0].Phone, "0244123")
}

func TestBuild_EncryptedFileStore(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Store = config.StoreConfig{
		Driver:        config.StoreFile,
		Path:          dir,
		EncryptionKey: hex.EncodeToString([]byte(strings.Repeat("k", 32))),
	}
	app := build(t, cfg, Deps{})
	ctx := context.Background()

	require.NoError(t, app.Params.Save(ctx, "active", sampleParams()))
	raw, err := os.ReadFile(filepath.Join(dir, "active.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0244123456")
	assert.NotContains(t, string(raw), "4321")

	loaded, err := app.Params.Load(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, "0244123456", loaded.Phone)
	assert.Equal(t, "4321", loaded.PIN)
}

func TestBuild_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store = config.StoreConfig{Driver: config.StoreRedis, RedisAddr: mr.Addr(), Prefix: "test:"}
	app := build(t, cfg, Deps{})

	require.NoError(t, app.Params.Save(context.Background(), "active", sampleParams()))
	assert.NotEmpty(t, mr.Keys())
}

func TestBuild_DurableLedgers(t *testing.T) {
	for _, driver := range []string{config.LedgerSQLite, config.LedgerWAL} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(t)
			path := filepath.Join(t.TempDir(), "nested", "ledger")
			cfg.Ledger = config.LedgerConfig{Driver: driver, Path: path}
			app := build(t, cfg, Deps{})
			ctx := context.Background()

			require.NoError(t, app.Ledger.Record(ctx, domain.Outcome{ID: "o-1", Status: domain.OutcomeSuccess}))
			got, err := app.Ledger.List(ctx, 10)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "o-1", got[0].ID)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	cases := map[string]func(*config.Config){
		"store":  func(c *config.Config) { c.Store.Driver = "etcd" },
		"ledger": func(c *config.Config) { c.Ledger.Driver = "csv" },
		"key":    func(c *config.Config) { c.Store.EncryptionKey = "short" },
		"host":   func(c *config.Config) { c.Host = "ios" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(cfg)
			_, err := Build(cfg, logging.NewNop(), Deps{})
			assert.Error(t, err)
		})
	}
}

func TestNewHost_ADB(t *testing.T) {
	cfg := testConfig(t)
	cfg.Host = config.HostADB

	_, err := NewHost(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "adb.serial")

	cfg.ADB.Serial = "emulator-5554"
	h, err := NewHost(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &adb.Host{}, h)
}

func TestApp_RunDrivesHost(t *testing.T) {
	script := DefaultScript(domain.Balance)
	host := sim.New(sim.WithScript(script...))
	cfg := testConfig(t)
	cfg.Controller.SendDelay = 50 * time.Millisecond
	app := build(t, cfg, Deps{Host: host})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.NoError(t, app.Controller.DialAndAutomate(ctx, "*170*7#", domain.Setup{Type: domain.Balance}))
	// The first screen may appear before Run subscribes, so show it again until it is answered.
	require.Eventually(t, func() bool {
		if len(host.Injected()) == 0 {
			host.Show(script[0])
			return false
		}
		return app.Controller.Status().LastOutcome != nil
	}, waitFor, tick)
	assert.Equal(t, []string{"5", "1"}, host.Injected())

	cancel()
	assert.NoError(t, <-done)
}
