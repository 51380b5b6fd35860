package sim

import (
	"context"
	"strings"
	"sync"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ui"
)

// Package name of simulated dialogs; it qualifies as a telephony window.
const Package = "com.android.phone"

// Screen is one scripted carrier response.
type Screen struct {
	Text string `yaml:"text" json:"text"`
	// Input adds an editable field.
	Input bool `yaml:"input" json:"input"`
	// Buttons default to Cancel and Send when Input is set, OK otherwise.
	Buttons []string `yaml:"buttons,omitempty" json:"buttons,omitempty"`
}

// NewDialog builds a USSD alert tree: message, optional field, buttons.
func NewDialog(s Screen) *ui.Element {
	buttons := s.Buttons
	if len(buttons) == 0 {
		if s.Input {
			buttons = []string{"Cancel", "Send"}
		} else {
			buttons = []string{"OK"}
		}
	}

	root := &ui.Element{
		ClassName:   "android.app.AlertDialog",
		PackageName: Package,
		Bounds:      "[0,600][1080,1300]",
	}
	root.Nodes = append(root.Nodes, ui.Element{
		ClassName:   "android.widget.TextView",
		PackageName: Package,
		TextValue:   s.Text,
		Bounds:      "[60,640][1020,900]",
	})
	if s.Input {
		root.Nodes = append(root.Nodes, ui.Element{
			ClassName:   "android.widget.EditText",
			PackageName: Package,
			IsClickable: true,
			IsFocusable: true,
			Bounds:      "[60,920][1020,1020]",
		})
	}
	for _, b := range buttons {
		root.Nodes = append(root.Nodes, ui.Element{
			ClassName:   "android.widget.Button",
			PackageName: Package,
			TextValue:   b,
			IsClickable: true,
			Bounds:      "[60,1100][1020,1200]",
		})
	}
	return root
}

// Click is one recorded button press.
type Click struct {
	Label string
	// Field holds the editable field's content at the time of the click.
	Field string
}

// Host is an in-process device. It implements ports.Host and ports.DialogSource.
// Scripted screens advance on every non-cancel click, which is enough to replay
// a whole carrier menu without hardware.
type Host struct {
	mu          sync.Mutex
	available   bool
	current     *ui.Element
	script      []Screen
	injected    []string
	clicks      []Click
	calls       []string
	settings    int
	setTextErr  error
	clickErr    error
	subscribers []chan ui.Node
}

// Option configures a Host.
type Option func(*Host)

// WithAvailable sets what AutomationAvailable reports.
func WithAvailable(ok bool) Option {
	return func(h *Host) {
		h.available = ok
	}
}

// WithScript queues screens shown by InitiateCall and each send click.
func WithScript(screens ...Screen) Option {
	return func(h *Host) {
		h.script = append(h.script, screens...)
	}
}

// New creates an available Host with no dialog on screen.
func New(opts ...Option) *Host {
	h := &Host{available: true}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Show puts a screen up and notifies watchers.
func (h *Host) Show(s Screen) *ui.Element {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.showLocked(s)
}

func (h *Host) showLocked(s Screen) *ui.Element {
	h.current = NewDialog(s)
	for _, ch := range h.subscribers {
		select {
		case ch <- h.current:
		default:
		}
	}
	return h.current
}

// Dismiss removes the dialog.
func (h *Host) Dismiss() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
}

// Enqueue appends screens to the script.
func (h *Host) Enqueue(screens ...Screen) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.script = append(h.script, screens...)
}

// FailSetText makes SetText return err until called again with nil.
func (h *Host) FailSetText(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setTextErr = err
}

// FailClick makes Click return err until called again with nil.
func (h *Host) FailClick(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clickErr = err
}

// SetAvailable toggles AutomationAvailable.
func (h *Host) SetAvailable(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.available = ok
}

// Injected returns every text typed into a field, in order.
func (h *Host) Injected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.injected...)
}

// Clicks returns every button press, in order.
func (h *Host) Clicks() []Click {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Click(nil), h.clicks...)
}

// Calls returns the dialled codes.
func (h *Host) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// SettingsOpened counts OpenAutomationSettings calls.
func (h *Host) SettingsOpened() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

// AutomationAvailable implements ports.Platform.
func (h *Host) AutomationAvailable(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.available
}

// OpenAutomationSettings implements ports.Platform.
func (h *Host) OpenAutomationSettings(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings++
	return nil
}

// InitiateCall records the code and shows the first scripted screen.
func (h *Host) InitiateCall(ctx context.Context, code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, code)
	h.advanceLocked()
	return nil
}

// ActiveDialog implements ports.Platform.
func (h *Host) ActiveDialog(ctx context.Context) (ui.Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil, domain.ErrNoActiveDialog
	}
	return h.current, nil
}

// SetText implements ports.Controls.
func (h *Host) SetText(ctx context.Context, node ui.Node, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.setTextErr != nil {
		return h.setTextErr
	}
	if el, ok := node.(*ui.Element); ok {
		el.SetText(text)
	}
	h.injected = append(h.injected, text)
	return nil
}

// Click implements ports.Controls. Any button but Cancel advances the script;
// Cancel dismisses the dialog.
func (h *Host) Click(ctx context.Context, node ui.Node) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clickErr != nil {
		return h.clickErr
	}

	c := Click{Label: node.Text()}
	if h.current != nil {
		if field, ok := ui.Find(h.current, func(n ui.Node) bool { return n.Editable() }); ok {
			c.Field = field.Text()
		}
	}
	h.clicks = append(h.clicks, c)

	if strings.EqualFold(c.Label, "Cancel") {
		h.current = nil
		return nil
	}
	h.advanceLocked()
	return nil
}

func (h *Host) advanceLocked() {
	if len(h.script) == 0 {
		return
	}
	next := h.script[0]
	h.script = h.script[1:]
	h.showLocked(next)
}

// Watch implements ports.DialogSource. Notifications are dropped when the
// consumer falls more than a buffer behind.
func (h *Host) Watch(ctx context.Context) (<-chan ui.Node, error) {
	ch := make(chan ui.Node, 64)

	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, sub := range h.subscribers {
			if sub == ch {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
