package ussdflow

import (
	"log/slog"
	"time"

	"github.com/aretw0/ussdflow/internal/runtime"
	"github.com/aretw0/ussdflow/pkg/dialog"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/matcher"
	"github.com/aretw0/ussdflow/pkg/ports"
)

const (
	// DefaultSendDelay is the pause between typing a value and clicking send,
	// giving the dialog time to register the input.
	DefaultSendDelay = 500 * time.Millisecond
	// DefaultResetDelay is how long Completed is shown before the flow returns to Idle.
	DefaultResetDelay = 3 * time.Second
	// DefaultSessionKey is the store key of the single active transaction.
	DefaultSessionKey = "active"
)

// Option defines a functional option for configuring the Controller.
type Option func(*Controller)

// WithStore persists parameters in store instead of memory.
func WithStore(store ports.ParamStore) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithLocker coordinates parameter access with other processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Controller) {
		c.locker = locker
	}
}

// WithLedger records every completed flow.
func WithLedger(ledger ports.Ledger) Option {
	return func(c *Controller) {
		c.ledger = ledger
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithSendDelay sets the pause between injection and the send click.
func WithSendDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.sendDelay = d
		}
	}
}

// WithResetDelay sets how long Completed lasts before returning to Idle.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.resetDelay = d
		}
	}
}

// WithSessionKey changes the store key of the active transaction.
func WithSessionKey(key string) Option {
	return func(c *Controller) {
		if key != "" {
			c.key = key
		}
	}
}

// WithVocabulary replaces the menu phrases used to pick options.
func WithVocabulary(v matcher.Vocabulary) Option {
	return func(c *Controller) {
		c.machineOpts = append(c.machineOpts, runtime.WithVocabulary(v))
	}
}

// WithDefaultDigits replaces the fallback menu digits.
func WithDefaultDigits(d matcher.DefaultDigits) Option {
	return func(c *Controller) {
		c.machineOpts = append(c.machineOpts, runtime.WithDefaultDigits(d))
	}
}

// WithMaxPinAttempts caps PIN submissions after wrong-PIN screens.
func WithMaxPinAttempts(n int) Option {
	return func(c *Controller) {
		c.machineOpts = append(c.machineOpts, runtime.WithMaxPinAttempts(n))
	}
}

// WithMaxReentries caps phone re-entries after confirmation mismatches.
func WithMaxReentries(n int) Option {
	return func(c *Controller) {
		c.machineOpts = append(c.machineOpts, runtime.WithMaxReentries(n))
	}
}

// WithClassifier replaces the screen vocabulary.
func WithClassifier(cl *dialog.Classifier) Option {
	return func(c *Controller) {
		c.classifier = cl
	}
}

// WithControlFinder overrides how the input field and send button are located.
func WithControlFinder(f ports.ControlFinder) Option {
	return func(c *Controller) {
		c.finder = f
	}
}

// WithSendLabels sets the captions accepted as the send button.
func WithSendLabels(labels ...string) Option {
	return func(c *Controller) {
		if len(labels) > 0 {
			c.labels = labels
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.clock = now
	}
}
