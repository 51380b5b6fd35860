package adb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/dialog"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ui"
	"golang.org/x/time/rate"
)

const (
	dumpFile        = "/data/local/tmp/ussdflow.xml"
	dumpRetries     = 3
	keycodeDel      = "67"
	keycodeMoveEnd  = "123"
	accessibilityUI = "android.settings.ACCESSIBILITY_SETTINGS"
)

// DefaultPollInterval paces dialog dumps in Watch.
const DefaultPollInterval = 750 * time.Millisecond

// Host drives a device over adb. It implements ports.Host and ports.DialogSource.
// Observation uses uiautomator dumps, so it needs no companion app on the device.
type Host struct {
	serial     string
	runner     Runner
	classifier *dialog.Classifier
	interval   time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithRunner replaces the adb executor.
func WithRunner(r Runner) Option {
	return func(h *Host) {
		h.runner = r
	}
}

// WithClassifier sets the vocabulary used to recognise USSD dialogs.
func WithClassifier(c *dialog.Classifier) Option {
	return func(h *Host) {
		h.classifier = c
	}
}

// WithPollInterval sets the dump pacing for Watch.
func WithPollInterval(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithRetryDelay sets the pause between failed dump attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(h *Host) {
		h.retryDelay = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// New creates a Host for the device with the given serial.
func New(serial string, opts ...Option) (*Host, error) {
	if err := ValidateSerial(serial); err != nil {
		return nil, err
	}
	h := &Host{
		serial:     serial,
		runner:     ExecRunner{},
		classifier: dialog.DefaultClassifier(),
		interval:   DefaultPollInterval,
		retryDelay: 500 * time.Millisecond,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Host) shell(ctx context.Context, args ...string) (string, error) {
	return h.runner.Run(ctx, h.serial, append([]string{"shell"}, args...)...)
}

// AutomationAvailable reports whether the device is attached and authorised.
func (h *Host) AutomationAvailable(ctx context.Context) bool {
	out, err := h.runner.Run(ctx, h.serial, "get-state")
	return err == nil && strings.TrimSpace(out) == "device"
}

// OpenAutomationSettings opens the accessibility settings on the device.
func (h *Host) OpenAutomationSettings(ctx context.Context) error {
	if _, err := h.shell(ctx, "am", "start", "-a", accessibilityUI); err != nil {
		return fmt.Errorf("failed to open accessibility settings: %w", err)
	}
	return nil
}

// InitiateCall dials a USSD code through the CALL intent.
func (h *Host) InitiateCall(ctx context.Context, code string) error {
	uri, err := EncodeTelURI(code)
	if err != nil {
		return err
	}
	if _, err := h.shell(ctx, "am", "start", "-a", "android.intent.action.CALL", "-d", uri); err != nil {
		return fmt.Errorf("failed to dial %s: %w", code, err)
	}
	return nil
}

// ActiveDialog dumps the screen and returns it when it shows a USSD dialog.
func (h *Host) ActiveDialog(ctx context.Context) (ui.Node, error) {
	raw, err := h.dump(ctx)
	if err != nil {
		return nil, err
	}
	root, err := ui.ParseHierarchy([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ui dump: %w", err)
	}
	if !h.classifier.IsUSSDDialog(root) {
		return nil, domain.ErrNoActiveDialog
	}
	return root, nil
}

// dump retries because uiautomator fails while another dump is running.
func (h *Host) dump(ctx context.Context) (string, error) {
	var (
		out string
		err error
	)
	for i := 0; i < dumpRetries; i++ {
		if i > 0 {
			_, _ = h.shell(ctx, "pkill", "uiautomator")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(h.retryDelay):
			}
		}
		out, err = h.shell(ctx, "uiautomator", "dump", dumpFile, "&&", "cat", dumpFile)
		if err == nil && strings.Contains(out, "<hierarchy") {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		h.logger.Debug("ui dump retry", "attempt", i+1, "err", err)
	}
	if err == nil {
		err = errors.New("no hierarchy in output")
	}
	return "", fmt.Errorf("failed to dump ui after %d attempts: %w", dumpRetries, err)
}

func (h *Host) tap(ctx context.Context, node ui.Node) error {
	el, ok := node.(*ui.Element)
	if !ok {
		return fmt.Errorf("node %T has no screen bounds", node)
	}
	rect, err := ui.ParseBounds(el.Bounds)
	if err != nil {
		return err
	}
	x, y := rect.Center()
	if _, err := h.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
		return fmt.Errorf("failed to tap: %w", err)
	}
	return nil
}

// SetText focuses the field, deletes its content and types text.
func (h *Host) SetText(ctx context.Context, node ui.Node, text string) error {
	if err := h.tap(ctx, node); err != nil {
		return err
	}
	if existing := len(node.Text()); existing > 0 {
		args := []string{"input", "keyevent", keycodeMoveEnd}
		for i := 0; i < existing; i++ {
			args = append(args, keycodeDel)
		}
		if _, err := h.shell(ctx, args...); err != nil {
			return fmt.Errorf("failed to clear field: %w", err)
		}
	}
	if text == "" {
		return nil
	}
	if _, err := h.shell(ctx, "input", "text", EscapeInputText(text)); err != nil {
		return fmt.Errorf("failed to type text: %w", err)
	}
	return nil
}

// Click taps the centre of the node.
func (h *Host) Click(ctx context.Context, node ui.Node) error {
	return h.tap(ctx, node)
}

// Watch polls the screen and emits a USSD dialog whenever its text changes.
func (h *Host) Watch(ctx context.Context) (<-chan ui.Node, error) {
	out := make(chan ui.Node)
	limiter := rate.NewLimiter(rate.Every(h.interval), 1)

	go func() {
		defer close(out)
		last := ""
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			root, err := h.ActiveDialog(ctx)
			if err != nil {
				if !errors.Is(err, domain.ErrNoActiveDialog) && ctx.Err() == nil {
					h.logger.Debug("dialog poll failed", "err", err)
				}
				last = ""
				continue
			}
			text := dialog.ExtractText(root, dialog.WithLabels())
			if text == last {
				continue
			}
			last = text
			select {
			case out <- root:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
