package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
	"github.com/aretw0/ussdflow/pkg/templates"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StatusURI is the resource holding the live automation status.
const StatusURI = "ussd://status"

// OutcomesURI is the resource listing recorded outcomes.
const OutcomesURI = "ussd://outcomes"

// Controller is the automation surface exposed as MCP tools.
type Controller interface {
	Status() domain.Status
	Setup(ctx context.Context, s domain.Setup) error
	DialAndAutomate(ctx context.Context, code string, s domain.Setup) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reset(ctx context.Context) error
	SubmitPIN(ctx context.Context, pin string) error
}

// Renderer produces a USSD code for a transaction on a network.
type Renderer interface {
	Render(t domain.TransactionType, n templates.Network, values templates.Values) (string, error)
}

// TransactionArgs is the common argument set of the transaction tools.
type TransactionArgs struct {
	Type     string `json:"type"`
	Phone    string `json:"phone,omitempty"`
	Amount   string `json:"amount,omitempty"`
	PIN      string `json:"pin,omitempty"`
	Code     string `json:"code,omitempty"`
	Network  string `json:"network,omitempty"`
	Merchant string `json:"merchant,omitempty"`
}

// RenderResult is returned by render_code.
type RenderResult struct {
	Code    string `json:"code" jsonschema_description:"The USSD code to dial"`
	Network string `json:"network" jsonschema_description:"Network the code was rendered for"`
}

// Server exposes a Controller as an MCP server.
type Server struct {
	ctrl      Controller
	templates Renderer
	ledger    ports.Ledger
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithTemplates enables render_code and code-less dial_and_automate calls.
func WithTemplates(r Renderer) Option {
	return func(s *Server) { s.templates = r }
}

// WithLedger exposes the outcome ledger as a resource.
func WithLedger(l ports.Ledger) Option {
	return func(s *Server) { s.ledger = l }
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(ctrl Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("ussdflow-mcp", strings.TrimSpace(ussdflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func transactionParams(requirePIN bool) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Transaction type"),
			mcp.Enum(typeNames()...)),
		mcp.WithString("phone", mcp.Description("Counterpart number, required except for balance and commission")),
		mcp.WithString("amount", mcp.Description("Amount as a positive decimal")),
	}
	if requirePIN {
		opts = append(opts, mcp.WithString("pin", mcp.Description("PIN to submit. Omit to be prompted during the flow")))
	}
	return opts
}

func typeNames() []string {
	var names []string
	for _, t := range domain.TransactionTypes() {
		names = append(names, string(t))
	}
	return names
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get the current automation status."),
		mcp.WithOutputSchema[domain.Status](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (domain.Status, error) {
		return s.ctrl.Status(), nil
	}))

	setupOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Prepare a transaction without dialing."),
		mcp.WithOutputSchema[domain.Status](),
	}, transactionParams(true)...)
	s.mcpServer.AddTool(mcp.NewTool("setup_transaction", setupOpts...),
		mcp.NewStructuredToolHandler(s.handleSetup))

	dialOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Prepare a transaction, enable automation and dial. The code is rendered from the template catalog when omitted."),
		mcp.WithString("code", mcp.Description("USSD code to dial, e.g. *171#")),
		mcp.WithString("network", mcp.Description("Network for template rendering; detected from the phone when omitted")),
		mcp.WithString("merchant", mcp.Description("Merchant ID for pay_merchant templates")),
		mcp.WithOutputSchema[RenderResult](),
	}, transactionParams(true)...)
	s.mcpServer.AddTool(mcp.NewTool("dial_and_automate", dialOpts...),
		mcp.NewStructuredToolHandler(s.handleDial))

	s.addSimple("enable_automation", "Enable automation for the prepared transaction.", s.ctrl.Enable)
	s.addSimple("disable_automation", "Disable automation and cancel any pending send.", s.ctrl.Disable)
	s.addSimple("reset_automation", "Clear the transaction and the stored parameters.", s.ctrl.Reset)

	s.mcpServer.AddTool(mcp.NewTool("submit_pin",
		mcp.WithDescription("Submit the PIN while the flow waits at the PIN prompt."),
		mcp.WithString("pin", mcp.Required(), mcp.Description("Numeric PIN, at least four digits")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pin, err := request.RequireString("pin")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.ctrl.SubmitPIN(ctx, pin); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("submit pin failed: %v", err)), nil
		}
		return mcp.NewToolResultText("pin submitted"), nil
	})

	if s.templates != nil {
		renderOpts := append([]mcp.ToolOption{
			mcp.WithDescription("Render the USSD code for a transaction without dialing."),
			mcp.WithString("network", mcp.Description("Network; detected from the phone when omitted")),
			mcp.WithString("merchant", mcp.Description("Merchant ID for pay_merchant templates")),
			mcp.WithOutputSchema[RenderResult](),
		}, transactionParams(false)...)
		s.mcpServer.AddTool(mcp.NewTool("render_code", renderOpts...),
			mcp.NewStructuredToolHandler(s.handleRender))
	}
}

func (s *Server) addSimple(name, description string, fn func(context.Context) error) {
	s.mcpServer.AddTool(mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithOutputSchema[domain.Status](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (domain.Status, error) {
		if err := fn(ctx); err != nil {
			return domain.Status{}, fmt.Errorf("%s failed: %w", name, err)
		}
		return s.ctrl.Status(), nil
	}))
}

func (a TransactionArgs) setup() (domain.Setup, error) {
	t, err := domain.ParseTransactionType(a.Type)
	if err != nil {
		return domain.Setup{}, err
	}
	return domain.Setup{
		Type:   t,
		Phone:  templates.NormalizePhone(a.Phone),
		Amount: strings.TrimSpace(a.Amount),
		PIN:    strings.TrimSpace(a.PIN),
	}, nil
}

func (s *Server) handleSetup(ctx context.Context, _ mcp.CallToolRequest, args TransactionArgs) (domain.Status, error) {
	setup, err := args.setup()
	if err != nil {
		return domain.Status{}, err
	}
	if err := s.ctrl.Setup(ctx, setup); err != nil {
		return domain.Status{}, err
	}
	return s.ctrl.Status(), nil
}

func (s *Server) handleDial(ctx context.Context, _ mcp.CallToolRequest, args TransactionArgs) (RenderResult, error) {
	setup, err := args.setup()
	if err != nil {
		return RenderResult{}, err
	}

	res := RenderResult{Code: strings.TrimSpace(args.Code)}
	if res.Code == "" && s.templates != nil {
		if res, err = s.render(setup, args); err != nil {
			return RenderResult{}, err
		}
	}
	if err := s.ctrl.DialAndAutomate(ctx, res.Code, setup); err != nil {
		s.logger.Warn("MCP dial failed", "type", setup.Type, "err", err)
		return RenderResult{}, fmt.Errorf("dial failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleRender(ctx context.Context, _ mcp.CallToolRequest, args TransactionArgs) (RenderResult, error) {
	setup, err := args.setup()
	if err != nil {
		return RenderResult{}, err
	}
	return s.render(setup, args)
}

func (s *Server) render(setup domain.Setup, args TransactionArgs) (RenderResult, error) {
	network := templates.ParseNetwork(args.Network)
	if network == templates.Unknown {
		network = templates.DetectNetwork(setup.Phone)
	}
	code, err := s.templates.Render(setup.Type, network, templates.Values{
		Amount:   setup.Amount,
		Phone:    setup.Phone,
		Merchant: strings.TrimSpace(args.Merchant),
	})
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{Code: code, Network: string(network)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StatusURI, "Automation Status",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.ctrl.Status())
		if err != nil {
			return nil, fmt.Errorf("failed to encode status: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: StatusURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	if s.ledger == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(OutcomesURI, "Recorded Outcomes",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		outcomes, err := s.ledger.List(ctx, 50)
		if err != nil {
			return nil, fmt.Errorf("failed to list outcomes: %w", err)
		}
		data, err := json.Marshal(outcomes)
		if err != nil {
			return nil, fmt.Errorf("failed to encode outcomes: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: OutcomesURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
