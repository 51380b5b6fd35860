package ussdflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/internal/runtime"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/dialog"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/executor"
	"github.com/aretw0/ussdflow/pkg/matcher"
	"github.com/aretw0/ussdflow/pkg/persistence/middleware"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/session"
	"github.com/aretw0/ussdflow/pkg/ui"
	"github.com/google/uuid"
)

// maskedPIN replaces PIN text in events and logs.
const maskedPIN = "****"

// Controller drives USSD dialogs for one active transaction.
//
// A single owner goroutine runs every operation and every dialog notification
// to completion, one at a time. Delayed work (the send click, the reset after
// Completed) is scheduled with timers that enqueue a job tagged with the
// generation it was scheduled in; Setup, Disable, Reset and Interrupt start a
// new generation, which drops anything still pending.
type Controller struct {
	host   ports.Host
	finder ports.ControlFinder
	store  ports.ParamStore
	locker ports.DistributedLocker
	params *session.Manager
	ledger ports.Ledger

	machineOpts []runtime.MachineOption
	machine     *runtime.Machine
	classifier  *dialog.Classifier
	sess        *runtime.Session

	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	sendDelay  time.Duration
	resetDelay time.Duration
	key        string
	labels     []string
	clock      func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	jobs      chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	gen         uint64
	timers      map[*time.Timer]struct{}
	lastOutcome *domain.Outcome
	startedAt   time.Time

	available atomic.Bool
	status    atomic.Pointer[domain.Status]
	subMu     sync.Mutex
	subs      map[chan domain.Status]struct{}
}

// New creates a Controller around host and restores the stored transaction.
// A transaction left in Completed is reset after the reset delay.
func New(host ports.Host, opts ...Option) (*Controller, error) {
	if host == nil {
		return nil, errors.New("host is required")
	}

	c := &Controller{
		host:       host,
		finder:     executor.Finder{},
		classifier: dialog.DefaultClassifier(),
		sendDelay:  DefaultSendDelay,
		resetDelay: DefaultResetDelay,
		key:        DefaultSessionKey,
		labels:     matcher.SendLabels,
		clock:      time.Now,
		jobs:       make(chan func()),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		timers:     make(map[*time.Timer]struct{}),
		subs:       make(map[chan domain.Status]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}

	mgrOpts := []session.Option{session.WithLogger(c.logger)}
	if c.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(c.locker))
	}
	c.params = session.NewManager(c.store, mgrOpts...)
	c.machine = runtime.NewMachine(c.machineOpts...)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	p, err := c.params.LoadOrEmpty(c.ctx, c.key)
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.sess = runtime.NewSession(c.machine, p)
	c.available.Store(host.AutomationAvailable(c.ctx))
	c.publish()

	if p.Step == domain.StepCompleted {
		c.schedule(c.resetDelay, c.autoReset)
	}

	go c.loop()
	return c, nil
}

func (c *Controller) loop() {
	defer close(c.stopped)
	for {
		select {
		case j := <-c.jobs:
			c.runJob(j)
		case <-c.done:
			return
		}
	}
}

func (c *Controller) runJob(j func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic in job", "panic", r)
		}
	}()
	j()
}

// do runs fn on the owner goroutine and waits for its result.
func (c *Controller) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	j := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				c.logger.Error("Recovered from panic in operation", "panic", r)
			}
			res <- err
		}()
		err = fn()
	}

	select {
	case c.jobs <- j:
	case <-c.done:
		return domain.ErrControllerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-res
}

// enqueue hands a job to the owner without waiting for it.
func (c *Controller) enqueue(j func()) {
	select {
	case c.jobs <- j:
	case <-c.done:
	}
}

// schedule runs fn on the owner after d, unless a new generation started meanwhile.
// Must be called from the owner goroutine.
func (c *Controller) schedule(d time.Duration, fn func(context.Context)) {
	gen := c.gen
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		c.enqueue(func() {
			delete(c.timers, t)
			if gen != c.gen {
				return
			}
			fn(c.ctx)
		})
	})
	c.timers[t] = struct{}{}
}

// cancelPending starts a new generation: pending timers are stopped and the
// duplicate guard is cleared.
func (c *Controller) cancelPending() {
	c.gen++
	for t := range c.timers {
		t.Stop()
		delete(c.timers, t)
	}
	c.sess.ClearGuard()
}

// persist saves the live parameters and publishes the new status.
func (c *Controller) persist(ctx context.Context) error {
	p := c.sess.Params()
	p.UpdatedAt = c.clock()
	c.sess.Update(p)

	err := c.params.Save(ctx, c.key, &p)
	c.publish()
	if err != nil {
		return fmt.Errorf("failed to save params: %w", err)
	}
	return nil
}

func (c *Controller) publish() {
	st := domain.NewStatus(c.sess.Params(), c.available.Load())
	st.LastOutcome = c.lastOutcome
	st.UpdatedAt = c.clock()
	c.status.Store(&st)

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (c *Controller) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: c.clock(), Type: t, Session: c.key}
}

func (c *Controller) transition(ctx context.Context, from, to domain.TransactionParameters, reason string) {
	if from.Step == to.Step {
		return
	}
	c.logger.Info("Step changed",
		"from", from.Step.String(),
		"to", to.Step.String(),
		"type", to.Type,
		"reason", reason,
	)
	if c.hooks.OnTransition != nil {
		c.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase:       c.base(domain.EventTransition),
			From:            from.Step,
			To:              to.Step,
			TransactionType: to.Type,
			Reason:          reason,
		})
	}
}

func (c *Controller) skip(ctx context.Context, reason string) {
	step := c.sess.Params().Step
	c.logger.Debug("Dialog skipped", "step", step.String(), "reason", reason)
	if c.hooks.OnSkip != nil {
		c.hooks.OnSkip(ctx, &domain.SkipEvent{
			EventBase: c.base(domain.EventSkip),
			Step:      step,
			Reason:    reason,
		})
	}
}

// handleDialog runs one notification through the machine and performs the
// resulting action. Host failures are logged and turn into a skip.
func (c *Controller) handleDialog(ctx context.Context, root ui.Node) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic while handling dialog", "panic", r)
			c.skip(ctx, "handler panic")
		}
	}()

	p := c.sess.Params()
	switch {
	case !p.AutomationEnabled:
		c.skip(ctx, "automation disabled")
		return
	case !p.Type.Valid():
		c.skip(ctx, "no transaction")
		return
	case root == nil:
		c.skip(ctx, "empty dialog")
		return
	}

	snap := c.classifier.Classify(dialog.ExtractText(root, dialog.WithLabels()))
	d, ok, reason := c.sess.Observe(snap)
	if !ok {
		c.skip(ctx, reason)
		return
	}
	c.execute(ctx, root, snap, p, d)
}

func (c *Controller) execute(ctx context.Context, root ui.Node, snap domain.DialogSnapshot, from domain.TransactionParameters, d runtime.Decision) {
	if from.Step == domain.StepIdle && d.Next.Step != domain.StepIdle {
		c.startedAt = c.clock()
	}

	switch d.Action.Kind {
	case runtime.ActionNone:
		c.sess.Commit(snap, d)
		if d.Advanced(from) {
			c.persistOrWarn(ctx)
			c.transition(ctx, from, d.Next, d.Reason)
		}

	case runtime.ActionInject:
		if err := executor.Inject(ctx, c.finder, c.host, root, d.Action.Text); err != nil {
			if errors.Is(err, executor.ErrControlNotFound) {
				c.skip(ctx, err.Error())
				return
			}
			c.logger.Warn("Failed to inject text", "step", from.Step.String(), "err", err)
			c.skip(ctx, "inject failed")
			return
		}

		c.sess.Commit(snap, d)
		c.persistOrWarn(ctx)

		text := d.Action.Text
		if d.Action.Field == domain.FieldPIN {
			text = maskedPIN
		}
		logged := text
		if d.Action.Field == domain.FieldPhone {
			logged = middleware.MaskPhone(text)
		}
		c.logger.Debug("Injected", "step", from.Step.String(), "field", d.Action.Field, "text", logged)
		if c.hooks.OnInject != nil {
			c.hooks.OnInject(ctx, &domain.InjectEvent{
				EventBase: c.base(domain.EventInject),
				Step:      from.Step,
				Field:     d.Action.Field,
				Text:      text,
			})
		}
		c.transition(ctx, from, d.Next, d.Reason)

		c.sess.ClickScheduled(from)
		c.schedule(c.sendDelay, c.clickSend)

	case runtime.ActionPromptPIN:
		c.sess.Commit(snap, d)
		c.persistOrWarn(ctx)
		c.transition(ctx, from, d.Next, d.Reason)
		c.logger.Info("Waiting for PIN", "type", d.Next.Type, "attempts", d.Next.AttemptCount)
		if c.hooks.OnPinPrompt != nil {
			c.hooks.OnPinPrompt(ctx, &domain.PinPromptEvent{
				EventBase:       c.base(domain.EventPinPrompt),
				TransactionType: d.Next.Type,
				AttemptCount:    d.Next.AttemptCount,
			})
		}

	case runtime.ActionComplete:
		c.sess.Commit(snap, d)
		outcome := c.outcome(d, snap.RawText)
		c.lastOutcome = &outcome
		c.persistOrWarn(ctx)

		if c.ledger != nil {
			if err := c.ledger.Record(ctx, outcome); err != nil {
				c.logger.Error("Failed to record outcome", "id", outcome.ID, "err", err)
			}
		}
		c.transition(ctx, from, d.Next, d.Reason)
		c.logger.Info("Transaction finished",
			"type", outcome.Type,
			"status", outcome.Status,
			"reference", outcome.Reference,
		)
		if c.hooks.OnOutcome != nil {
			var elapsed time.Duration
			if !c.startedAt.IsZero() {
				elapsed = c.clock().Sub(c.startedAt)
			}
			c.hooks.OnOutcome(ctx, &domain.OutcomeEvent{
				EventBase: c.base(domain.EventOutcome),
				Outcome:   outcome,
				Duration:  elapsed,
			})
		}
		c.schedule(c.resetDelay, c.autoReset)
	}
}

func (c *Controller) persistOrWarn(ctx context.Context) {
	if err := c.persist(ctx); err != nil {
		c.logger.Warn("Failed to persist step", "step", c.sess.Params().Step.String(), "err", err)
	}
}

func (c *Controller) outcome(d runtime.Decision, text string) domain.Outcome {
	ref, ok := matcher.ExtractReference(text)
	if !ok {
		ref = "USSD_" + uuid.NewString()
	}
	return domain.Outcome{
		ID:        uuid.NewString(),
		Type:      d.Next.Type,
		Amount:    d.Next.Amount,
		Phone:     d.Next.Phone,
		Status:    d.Outcome,
		Reference: ref,
		Message:   strings.TrimSpace(text),
		Timestamp: c.clock(),
	}
}

// clickSend presses the send button of whatever dialog is now on screen. When
// that fails the step taken for the typed value is rolled back, so the next
// notification answers the same screen again.
func (c *Controller) clickSend(ctx context.Context) {
	err := c.send(ctx)
	if err == nil {
		c.sess.ClickDone(true)
		return
	}
	c.logger.Warn("Failed to send", "err", err)
	advanced := c.sess.Params()
	if !c.sess.ClickDone(false) {
		return
	}
	c.persistOrWarn(ctx)
	c.transition(ctx, advanced, c.sess.Params(), "send failed")
}

func (c *Controller) send(ctx context.Context) error {
	root, err := c.host.ActiveDialog(ctx)
	if err != nil {
		return fmt.Errorf("no dialog to send: %w", err)
	}
	return executor.Click(ctx, c.finder, c.host, root, c.labels)
}

func (c *Controller) autoReset(ctx context.Context) {
	p := c.sess.Params()
	if p.Step != domain.StepCompleted {
		return
	}
	from := p
	p.ResetProgress()
	c.sess.Replace(p)
	c.persistOrWarn(ctx)
	c.transition(ctx, from, p, "reset after completion")
}

// Setup stores a new transaction at Idle. The enabled flag is kept.
func (c *Controller) Setup(ctx context.Context, s domain.Setup) error {
	p, err := domain.NewParameters(s)
	if err != nil {
		return fmt.Errorf("failed to setup transaction: %w", err)
	}
	return c.do(ctx, func() error {
		prev := c.sess.Params()
		p.AutomationEnabled = prev.AutomationEnabled
		c.cancelPending()
		c.sess.Replace(p)
		c.startedAt = time.Time{}
		if err := c.persist(ctx); err != nil {
			return err
		}
		c.transition(ctx, prev, p, "setup")
		c.logger.Info("Transaction configured", "type", p.Type, "custom_pin", p.PinIsUserSupplied)
		return nil
	})
}

// Enable lets dialog notifications drive the flow.
func (c *Controller) Enable(ctx context.Context) error {
	return c.do(ctx, func() error {
		p := c.sess.Params()
		p.AutomationEnabled = true
		c.sess.Replace(p)
		return c.persist(ctx)
	})
}

// Disable stops automation and returns the flow to Idle. Pending clicks and
// resets are cancelled.
func (c *Controller) Disable(ctx context.Context) error {
	return c.do(ctx, func() error {
		from := c.sess.Params()
		c.cancelPending()
		p := from
		p.AutomationEnabled = false
		p.ResetProgress()
		c.sess.Replace(p)
		if err := c.persist(ctx); err != nil {
			return err
		}
		c.transition(ctx, from, p, "disabled")
		return nil
	})
}

// Reset forgets the transaction entirely.
func (c *Controller) Reset(ctx context.Context) error {
	return c.do(ctx, func() error {
		from := c.sess.Params()
		c.cancelPending()
		c.sess.Replace(domain.TransactionParameters{})
		c.lastOutcome = nil
		c.startedAt = time.Time{}

		err := c.params.Delete(ctx, c.key)
		c.publish()
		if err != nil {
			return fmt.Errorf("failed to delete params: %w", err)
		}
		c.transition(ctx, from, domain.TransactionParameters{}, "reset")
		return nil
	})
}

// Interrupt returns the flow to Idle and keeps the transaction.
func (c *Controller) Interrupt(ctx context.Context) error {
	return c.do(ctx, func() error {
		from := c.sess.Params()
		c.cancelPending()
		p := from
		p.ResetProgress()
		c.sess.Replace(p)
		if err := c.persist(ctx); err != nil {
			return err
		}
		c.transition(ctx, from, p, "interrupted")
		return nil
	})
}

// SubmitPIN hands over the PIN the flow is waiting for. When the PIN dialog is
// still on screen it is typed immediately; otherwise on the next notification.
func (c *Controller) SubmitPIN(ctx context.Context, pin string) error {
	pin = strings.TrimSpace(pin)
	return c.do(ctx, func() error {
		p := c.sess.Params()
		if p.Step != domain.StepPinPrompt {
			return domain.ErrNotAwaitingPIN
		}
		if !domain.ValidPIN(pin) {
			return domain.ErrInvalidPIN
		}

		p.PIN = pin
		p.PinIsUserSupplied = true
		p.PinSubmitted = true
		c.sess.Update(p)
		if err := c.persist(ctx); err != nil {
			return err
		}

		root, err := c.host.ActiveDialog(ctx)
		if err != nil {
			c.logger.Debug("PIN stored until the next dialog", "err", err)
			return nil
		}
		if !c.classifier.Classify(dialog.ExtractText(root, dialog.WithLabels())).LooksLikePinPrompt {
			c.logger.Debug("Active dialog is not a PIN prompt")
			return nil
		}
		c.handleDialog(ctx, root)
		return nil
	})
}

// Ready reports whether the host can observe and drive dialogs right now.
func (c *Controller) Ready(ctx context.Context) bool {
	ok := c.host.AutomationAvailable(ctx)
	if c.available.Swap(ok) != ok {
		_ = c.do(ctx, func() error {
			c.publish()
			return nil
		})
	}
	return ok
}

// OpenAutomationSettings asks the host to show its permission screen.
func (c *Controller) OpenAutomationSettings(ctx context.Context) error {
	if err := c.host.OpenAutomationSettings(ctx); err != nil {
		return fmt.Errorf("failed to open automation settings: %w", err)
	}
	return nil
}

// DialAndAutomate configures a transaction, enables automation and dials code.
// When the host is not ready its settings are opened instead.
func (c *Controller) DialAndAutomate(ctx context.Context, code string, s domain.Setup) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrEmptyCode
	}
	if !c.Ready(ctx) {
		if err := c.OpenAutomationSettings(ctx); err != nil {
			c.logger.Warn("Failed to open automation settings", "err", err)
		}
		return domain.ErrAutomationUnavailable
	}
	if err := c.Setup(ctx, s); err != nil {
		return err
	}
	if err := c.Enable(ctx); err != nil {
		return err
	}
	if err := c.host.InitiateCall(ctx, code); err != nil {
		return fmt.Errorf("failed to initiate call: %w", err)
	}
	c.logger.Info("Dialled", "code", code, "type", s.Type)
	return nil
}

// HandleDialog feeds one dialog notification to the flow.
func (c *Controller) HandleDialog(ctx context.Context, root ui.Node) error {
	return c.do(ctx, func() error {
		c.handleDialog(ctx, root)
		return nil
	})
}

// Run feeds every notification of src to the flow until ctx ends, the source
// closes or the controller is closed.
func (c *Controller) Run(ctx context.Context, src ports.DialogSource) error {
	events, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch dialogs: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return domain.ErrControllerClosed
		case root, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.HandleDialog(ctx, root); err != nil {
				if errors.Is(err, domain.ErrControllerClosed) || ctx.Err() != nil {
					return err
				}
				c.logger.Error("Failed to handle dialog", "err", err)
			}
		}
	}
}

// Status returns the latest snapshot without waiting on the owner.
func (c *Controller) Status() domain.Status {
	return *c.status.Load()
}

// Watch streams status snapshots until ctx ends. Slow readers only see the
// latest snapshot. The current snapshot is delivered first.
func (c *Controller) Watch(ctx context.Context) <-chan domain.Status {
	ch := make(chan domain.Status, 1)

	c.subMu.Lock()
	ch <- c.Status()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		c.subMu.Lock()
		delete(c.subs, ch)
		close(ch)
		c.subMu.Unlock()
	}()
	return ch
}

// Close stops the owner goroutine and every pending timer.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.stopped
		for t := range c.timers {
			t.Stop()
		}
		c.cancel()
	})
	return nil
}
