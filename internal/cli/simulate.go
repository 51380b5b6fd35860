package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/ussdflow/internal/config"
	"github.com/aretw0/ussdflow/internal/presentation/tui"
	"github.com/aretw0/ussdflow/pkg/adapters/sim"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/templates"
	"github.com/aretw0/ussdflow/pkg/ui"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// DefaultSimulateTimeout bounds a simulated run.
const DefaultSimulateTimeout = 2 * time.Minute

// ErrSimulationTimeout is returned when no outcome is reached in time.
var ErrSimulationTimeout = errors.New("simulation timed out before an outcome")

// SimulateOptions configures RunSimulate.
type SimulateOptions struct {
	Setup domain.Setup
	// Code is dialed as is. Empty renders it from the template catalog.
	Code     string
	Network  string
	Merchant string
	// Script is a YAML file with a "screens" list. Empty uses DefaultScript.
	Script string
	// PIN answers the PIN prompt. Empty reads it from In.
	PIN     string
	Timeout time.Duration
	In      io.Reader
	Out     io.Writer
	Render  tui.Renderer
}

type scriptFile struct {
	Screens []sim.Screen `yaml:"screens"`
}

// LoadScript reads a screen script.
func LoadScript(path string) ([]sim.Screen, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	if len(f.Screens) == 0 {
		return nil, fmt.Errorf("script %s has no screens", path)
	}
	return f.Screens, nil
}

// DefaultScript returns a carrier menu that walks t to a successful end.
func DefaultScript(t domain.TransactionType) []sim.Screen {
	screens := []sim.Screen{
		{Text: "Mobile Money\n1. Pay Merchant\n2. Cash Out\n3. Transfer Money\n4. Airtime & Bundles\n5. Financial Services", Input: true},
	}
	switch t {
	case domain.Balance, domain.Commission:
		screens = append(screens,
			sim.Screen{Text: "1. Check Balance\n2. Mini Statement", Input: true},
			sim.Screen{Text: "Your balance is GHS 250.00. Ref: SIM" + strings.ToUpper(string(t[:3]))},
		)
		return screens
	case domain.CashIn:
		screens = append(screens, sim.Screen{Text: "1. Send Money\n2. Buy Goods", Input: true})
	case domain.CashOut:
		screens = append(screens, sim.Screen{Text: "1. Withdraw from Agent\n2. ATM Withdrawal", Input: true})
	case domain.AirtimeTransfer:
		screens = append(screens, sim.Screen{Text: "1. Buy Airtime\n2. Transfer Airtime", Input: true})
	case domain.PayMerchant:
		screens = append(screens, sim.Screen{Text: "1. Pay Merchant\n2. Buy Goods", Input: true})
	}
	return append(screens,
		sim.Screen{Text: "Enter phone number:", Input: true},
		sim.Screen{Text: "Confirm phone number:", Input: true},
		sim.Screen{Text: "Enter amount:", Input: true},
		sim.Screen{Text: "1. Confirm\n2. Cancel", Input: true},
		sim.Screen{Text: "Enter PIN:", Input: true},
		sim.Screen{Text: "Transaction successful. Ref: SIM001"},
	)
}

// syncWriter serializes writes from hooks and the PIN prompt.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type channelSource <-chan ui.Node

func (s channelSource) Watch(context.Context) (<-chan ui.Node, error) {
	return s, nil
}

// RunSimulate drives one transaction against an in-process host with memory
// persistence and returns its outcome. Transitions are printed to Out as they
// happen.
func RunSimulate(ctx context.Context, base *config.Config, logger *slog.Logger, opts SimulateOptions) (*domain.Outcome, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Render == nil {
		opts.Render = tui.PlainRenderer()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSimulateTimeout
	}
	if !opts.Setup.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTransactionType, opts.Setup.Type)
	}
	opts.Setup.Phone = templates.NormalizePhone(opts.Setup.Phone)

	screens := DefaultScript(opts.Setup.Type)
	if opts.Script != "" {
		var err error
		if screens, err = LoadScript(opts.Script); err != nil {
			return nil, err
		}
	}
	host := sim.New(sim.WithScript(screens...))

	cfg := *base
	cfg.Host = config.HostSim
	cfg.Store = config.StoreConfig{Driver: config.StoreMemory}
	cfg.Ledger = config.LedgerConfig{Driver: config.LedgerMemory, MaskPII: base.Ledger.MaskPII}
	cfg.Templates.Watch = false

	opts.Out = &syncWriter{w: opts.Out}
	printf := func(format string, args ...any) {
		printSystemMessage(opts.Out, format, args...)
	}
	app, err := Build(&cfg, logger, Deps{
		Host: host,
		Hooks: []domain.LifecycleHooks{{
			OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
				printf("%s -> %s (%s)", e.From, e.To, e.Reason)
			},
			OnInject: func(_ context.Context, e *domain.InjectEvent) {
				printf("typed %s %q", e.Field, e.Text)
			},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer app.Close()

	code := opts.Code
	if code == "" {
		if code, err = renderCode(app.Templates, opts); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	// Subscribe before dialing so the first screen reaches the controller.
	notifications, err := host.Watch(runCtx)
	if err != nil {
		return nil, err
	}
	runErr := make(chan error, 1)
	go func() { runErr <- app.Controller.Run(runCtx, channelSource(notifications)) }()

	updates := app.Controller.Watch(runCtx)
	printf("dialing %s", code)
	if err := app.Controller.DialAndAutomate(runCtx, code, opts.Setup); err != nil {
		return nil, err
	}

	pins := newPINReader(opts.In, opts.Out)
	prompted := false
	for {
		select {
		case <-runCtx.Done():
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return nil, ErrSimulationTimeout
			}
			return nil, runCtx.Err()
		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, ErrSimulationTimeout
		case st := <-updates:
			if st.LastOutcome != nil {
				out, err := opts.Render(tui.OutcomeMarkdown(*st.LastOutcome))
				if err != nil {
					return nil, err
				}
				fmt.Fprint(opts.Out, out)
				return st.LastOutcome, nil
			}
			if !st.PinPromptActive {
				prompted = false
				continue
			}
			if prompted {
				continue
			}
			prompted = true
			if err := answerPIN(runCtx, app.Controller.SubmitPIN, opts.PIN, pins, printf); err != nil {
				return nil, err
			}
		}
	}
}

func renderCode(store *templates.Store, opts SimulateOptions) (string, error) {
	network := templates.ParseNetwork(opts.Network)
	if network == templates.Unknown {
		network = templates.DetectNetwork(opts.Setup.Phone)
	}
	code, err := store.Render(opts.Setup.Type, network, templates.Values{
		Amount:   opts.Setup.Amount,
		Phone:    opts.Setup.Phone,
		Merchant: opts.Merchant,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render code: %w", err)
	}
	return code, nil
}

// answerPIN submits pin, or asks for one until the controller accepts it.
func answerPIN(ctx context.Context, submit func(context.Context, string) error, pin string, pins *pinReader, printf func(string, ...any)) error {
	if pin != "" {
		return submit(ctx, pin)
	}
	for {
		printf("PIN requested")
		entered, err := pins.read(ctx)
		if err != nil {
			return err
		}
		err = submit(ctx, entered)
		if errors.Is(err, domain.ErrInvalidPIN) {
			printf("invalid PIN, try again")
			continue
		}
		if errors.Is(err, domain.ErrNotAwaitingPIN) {
			return nil
		}
		return err
	}
}

// pinReader reads PINs line by line, without echo when the input is a terminal.
type pinReader struct {
	term *os.File
	buf  *bufio.Reader
	out  io.Writer
}

func newPINReader(in io.Reader, out io.Writer) *pinReader {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &pinReader{term: f, out: out}
	}
	return &pinReader{buf: bufio.NewReader(in), out: out}
}

func (r *pinReader) read(ctx context.Context) (string, error) {
	type result struct {
		pin string
		err error
	}
	done := make(chan result, 1)
	go func() {
		fmt.Fprint(r.out, "PIN: ")
		if r.term != nil {
			b, err := term.ReadPassword(int(r.term.Fd()))
			fmt.Fprintln(r.out)
			done <- result{strings.TrimSpace(string(b)), err}
			return
		}
		line, err := r.buf.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			done <- result{"", fmt.Errorf("failed to read pin: %w", err)}
			return
		}
		done <- result{strings.TrimSpace(line), nil}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.pin, res.err
	}
}
