package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/adapters/adb"
	"github.com/aretw0/ussdflow/pkg/adapters/file"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/adapters/redis"
	"github.com/aretw0/ussdflow/pkg/adapters/sim"
	"github.com/aretw0/ussdflow/pkg/adapters/sqlite"
	"github.com/aretw0/ussdflow/pkg/adapters/wal"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/observability"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/templates"
)

// App holds everything a command needs, wired from one Config.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Controller *ussdflow.Controller
	Host       ports.Host
	Params     ports.ParamStore
	Ledger     ports.Ledger
	Templates  *templates.Store
	Metrics    *observability.Metrics

	closers []io.Closer
}

// Deps overrides parts of the wiring.
type Deps struct {
	// Host replaces the configured host.
	Host ports.Host
	// Hooks run after the metrics and logging hooks.
	Hooks []domain.LifecycleHooks
}

// NewLogger builds the application logger on stderr.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Format)), nil
}

// Build wires the controller and its adapters. Close the App when done.
func Build(cfg *config.Config, logger *slog.Logger, deps Deps) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var locker ports.DistributedLocker
	a.Params, locker, err = a.openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	if a.Ledger, err = a.openLedger(cfg.Ledger); err != nil {
		return nil, err
	}
	if a.Templates, err = templates.NewStore(cfg.Templates.Path, templates.WithLogger(logger)); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	a.Host = deps.Host
	if a.Host == nil {
		if a.Host, err = NewHost(cfg, logger); err != nil {
			return nil, err
		}
	}

	a.Metrics = observability.NewMetrics()
	hooks := append([]domain.LifecycleHooks{a.Metrics.Hooks(), observability.LogHooks(logger)}, deps.Hooks...)

	opts := []ussdflow.Option{
		ussdflow.WithStore(a.Params),
		ussdflow.WithLedger(a.Ledger),
		ussdflow.WithLogger(logger),
		ussdflow.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		ussdflow.WithSendDelay(cfg.Controller.SendDelay),
		ussdflow.WithResetDelay(cfg.Controller.ResetDelay),
		ussdflow.WithSessionKey(cfg.Controller.SessionKey),
		ussdflow.WithMaxPinAttempts(cfg.Controller.MaxPinAttempts),
		ussdflow.WithMaxReentries(cfg.Controller.MaxReentries),
		ussdflow.WithVocabulary(cfg.Menu.VocabularyOrDefault()),
		ussdflow.WithDefaultDigits(cfg.Menu.DefaultDigits()),
		ussdflow.WithClassifier(cfg.Menu.ClassifierOrDefault()),
	}
	if locker != nil {
		opts = append(opts, ussdflow.WithLocker(locker))
	}
	if len(cfg.Controller.SendLabels) > 0 {
		opts = append(opts, ussdflow.WithSendLabels(cfg.Controller.SendLabels...))
	}

	if a.Controller, err = ussdflow.New(a.Host, opts...); err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}
	a.closers = append(a.closers, a.Controller)
	return a, nil
}

// Run feeds host notifications to the controller until ctx ends. With
// templates.watch set the catalog is reloaded whenever its file changes.
func (a *App) Run(ctx context.Context) error {
	src, ok := a.Host.(ports.DialogSource)
	if !ok {
		return fmt.Errorf("host %T cannot deliver dialog notifications", a.Host)
	}
	if a.Config.Templates.Watch {
		changes, err := a.Templates.Watch(ctx)
		if err != nil {
			a.Logger.Warn("Template watch disabled", "path", a.Config.Templates.Path, "err", err)
		} else {
			go func() {
				for range changes {
				}
			}()
		}
	}
	err := a.Controller.Run(ctx, src)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the controller and releases stores, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(cfg config.StoreConfig) (ports.ParamStore, ports.DistributedLocker, error) {
	var (
		store  ports.ParamStore
		locker ports.DistributedLocker
	)
	switch cfg.Driver {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(cfg.Path)
	case config.StoreRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		a.closers = append(a.closers, rs)
		store = rs
		locker = redis.NewLocker(rs.Client(), "ussdflow:lock:")
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, nil, err
		}
		store = middleware.Chain(store, seal)
	}
	return store, locker, nil
}

func (a *App) openLedger(cfg config.LedgerConfig) (ports.Ledger, error) {
	var ledger ports.Ledger
	switch cfg.Driver {
	case config.LedgerMemory:
		ledger = memory.NewLedger()
	case config.LedgerSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger dir: %w", err)
		}
		l, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l)
		ledger = l
	case config.LedgerWAL:
		l, err := wal.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l)
		ledger = l
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
	if cfg.MaskPII {
		ledger = middleware.NewPIILedger()(ledger)
	}
	return ledger, nil
}

// NewHost creates the configured device host.
func NewHost(cfg *config.Config, logger *slog.Logger) (ports.Host, error) {
	switch cfg.Host {
	case config.HostSim:
		return sim.New(), nil
	case config.HostADB:
		if cfg.ADB.Serial == "" {
			return nil, errors.New("adb.serial is required (set USSDFLOW_ADB_SERIAL or --serial)")
		}
		return adb.New(cfg.ADB.Serial,
			adb.WithRunner(adb.ExecRunner{Path: cfg.ADB.Binary}),
			adb.WithPollInterval(cfg.ADB.PollInterval),
			adb.WithClassifier(cfg.Menu.ClassifierOrDefault()),
			adb.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown host %q", cfg.Host)
	}
}
