package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"steelpos/internal/api"
	"steelpos/internal/config"
	"steelpos/internal/forms"
	"steelpos/internal/llm"
	"steelpos/internal/pos"
	"steelpos/internal/routes"
	"steelpos/internal/session"

	"github.com/juju/clock"
	"go.uber.org/zap"
)

type Runner struct {
	options   Options
	logger    *zap.Logger
	pos       *pos.Client
	llmClient *llm.Client
	clock     clock.Clock

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func NewRunner(cfg config.Config, logger *zap.Logger, posClient *pos.Client, llmClient *llm.Client) *Runner {
	logger = logger.Named("cli")
	opts := Options{
		Timeout:    cfg.Timeout,
		Limit:      cfg.PageSize,
		LLMBaseURL: cfg.LLMBaseURL,
		LLMAPIKey:  cfg.LLMAPIKey,
		LLMModel:   cfg.LLMModel,
	}

	return &Runner{
		options:   opts,
		logger:    logger,
		pos:       posClient,
		llmClient: llmClient,
		clock:     clock.WallClock,
		in:        os.Stdin,
		out:       os.Stdout,
		errOut:    os.Stderr,
	}
}

// WithIO redirects the runner's streams.
func (r *Runner) WithIO(in io.Reader, out, errOut io.Writer) *Runner {
	r.in, r.out, r.errOut = in, out, errOut
	return r
}

func (r *Runner) WithClock(clk clock.Clock) *Runner {
	r.clock = clk
	return r
}

func (r *Runner) Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return r.Run(ctx, os.Args[1:])
}

// Run parses args and opens the requested command or page.
func (r *Runner) Run(ctx context.Context, args []string) error {
	opts := r.options
	if err := r.parseArgs(&opts, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.LLMAPIKey != r.options.LLMAPIKey || opts.LLMModel != r.options.LLMModel || opts.LLMBaseURL != r.options.LLMBaseURL {
		client, err := llm.NewClient(config.Config{
			LLMBaseURL: opts.LLMBaseURL,
			LLMAPIKey:  opts.LLMAPIKey,
			LLMModel:   opts.LLMModel,
			Timeout:    opts.Timeout,
		}, r.logger)
		if err != nil {
			return err
		}
		r.llmClient = client
	}

	if opts.Timeout > 0 && !opts.Interactive {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*opts.Timeout)
		defer cancel()
	}

	r.logger.Debug("command",
		zap.String("target", opts.Target),
		zap.Bool("json", opts.JSON),
		zap.Bool("interactive", opts.Interactive),
	)

	switch opts.Target {
	case "login":
		return r.login(ctx, &opts)
	case "logout":
		return r.logout(ctx)
	case "whoami":
		return r.whoami(ctx, &opts)
	case "routes":
		return r.listRoutes(&opts)
	}
	return r.open(ctx, &opts)
}

func (r *Runner) newFlagSet(opts *Options, timeoutSeconds *int) *flag.FlagSet {
	fs := flag.NewFlagSet("steelpos", flag.ContinueOnError)
	fs.SetOutput(r.errOut)
	fs.Usage = func() {
		fmt.Fprintf(r.errOut, "Usage: %s [flags] <login|logout|whoami|routes|page path> [question]\n", fs.Name())
		fmt.Fprintln(r.errOut, "Pages: /dashboard, /sales, /sales/create, /sales/{id}, /sales/{id}/edit, /inventory/..., /products/..., /customers/..., /reports, /analytics")
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.JSON, "json", opts.JSON, "Output JSON format")
	fs.BoolVar(&opts.Interactive, "i", opts.Interactive, "Interactive assistant session (/reports)")
	fs.IntVar(timeoutSeconds, "timeout", int(opts.Timeout.Seconds()), "Timeout in seconds")

	fs.IntVar(&opts.Page, "page", opts.Page, "Page number")
	fs.IntVar(&opts.Limit, "limit", opts.Limit, "Page size")
	fs.StringVar(&opts.Search, "search", opts.Search, "Search term")
	fs.StringVar(&opts.Status, "status", opts.Status, "Status filter")
	fs.StringVar(&opts.PaymentStatus, "payment-status", opts.PaymentStatus, "Payment status filter (sales)")
	fs.StringVar(&opts.Supplier, "supplier", opts.Supplier, "Supplier filter (inventory)")
	fs.StringVar(&opts.Period, "period", opts.Period, "Date preset: "+strings.Join(Periods, ", "))
	fs.StringVar(&opts.From, "from", opts.From, "Start date (YYYY-MM-DD)")
	fs.StringVar(&opts.To, "to", opts.To, "End date (YYYY-MM-DD)")

	fs.StringVar(&opts.File, "file", opts.File, "JSON draft for create and edit pages")
	fs.StringVar(&opts.Find, "find", opts.Find, "Search variants to pick for an invoice")
	fs.StringVar(&opts.Approve, "approve", opts.Approve, "Approve the import order with this note")
	fs.BoolVar(&opts.Delete, "delete", opts.Delete, "Delete the record")
	fs.BoolVar(&opts.Audit, "audit", opts.Audit, "Show the invoice change history")
	fs.StringVar(&opts.PDF, "pdf", opts.PDF, "Download the invoice PDF to this path")
	fs.BoolVar(&opts.PDFURL, "pdf-url", opts.PDFURL, "Print a shareable invoice PDF link")
	fs.Float64Var(&opts.Pay, "pay", opts.Pay, "Record a payment of this amount")
	fs.StringVar(&opts.Method, "method", opts.Method, "Payment method: "+strings.Join(pos.PaymentMethods, ", "))

	fs.StringVar(&opts.Username, "username", opts.Username, "Username (login)")
	fs.StringVar(&opts.Password, "password", opts.Password, "Password (login)")

	fs.StringVar(&opts.LLMBaseURL, "llm-base-url", opts.LLMBaseURL, "LLM base URL (LLM_BASE_URL)")
	fs.StringVar(&opts.LLMAPIKey, "llm-api-key", opts.LLMAPIKey, "LLM API key (LLM_API_KEY)")
	fs.StringVar(&opts.LLMModel, "llm-model", opts.LLMModel, "LLM model (LLM_MODEL)")
	return fs
}

// parseArgs accepts flags before and after the positional arguments.
func (r *Runner) parseArgs(opts *Options, args []string) error {
	var timeoutSeconds int
	fs := r.newFlagSet(opts, &timeoutSeconds)

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
	if timeoutSeconds > 0 {
		opts.Timeout = time.Duration(timeoutSeconds) * time.Second
	}

	if len(positional) == 0 {
		opts.Target = string(routes.Dashboard)
		return nil
	}
	opts.Target = strings.TrimSpace(positional[0])
	if len(positional) > 1 {
		if routes.Resolve(opts.Target, true).Route != routes.Reports {
			return fmt.Errorf("only the /reports page takes a question, got %q", strings.Join(positional[1:], " "))
		}
		opts.Query = strings.TrimSpace(strings.Join(positional[1:], " "))
	}
	return nil
}

// open restores the session, resolves the path and renders the page.
func (r *Runner) open(ctx context.Context, opts *Options) error {
	authenticated := false
	s, err := r.pos.Restore(ctx)
	switch {
	case err == nil:
		authenticated = true
	case errors.Is(err, session.ErrNoSession):
	case isTransport(err):
		return err
	default:
		r.logger.Info("stored session rejected", zap.Error(err))
		r.notice("Phiên đăng nhập đã hết hạn.")
	}

	m := routes.Resolve(opts.Target, authenticated)
	if m.Route == routes.Login {
		return ErrSignInRequired
	}
	if m.Redirected {
		r.notice("Chuyển tới %s", m.Path)
	}

	page, ok := pageFor(m.Route)
	if !ok {
		return fmt.Errorf("no handler for %s", m.Route)
	}
	r.logger.Info("page opened", zap.String("path", m.Path), zap.String("user", userName(s.User)))
	return page(ctx, r, opts, m)
}

func (r *Runner) login(ctx context.Context, opts *Options) error {
	draft := forms.LoginDraft{Username: opts.Username, Password: opts.Password}
	if strings.TrimSpace(draft.Username) == "" || draft.Password == "" {
		if err := r.promptCredentials(&draft); err != nil {
			return err
		}
	}
	if err := draft.Validate().Err(); err != nil {
		return err
	}

	user, next, err := r.pos.Login(ctx, draft.Username, draft.Password)
	if err != nil {
		return err
	}
	r.toast("Đăng nhập thành công. Xin chào %s!", userName(&user))

	m := routes.Resolve(string(next), true)
	page, ok := pageFor(m.Route)
	if !ok {
		return nil
	}
	return page(ctx, r, opts, m)
}

func (r *Runner) promptCredentials(d *forms.LoginDraft) error {
	scanner := bufio.NewScanner(r.in)
	ask := func(label string, dst *string) error {
		if *dst != "" {
			return nil
		}
		fmt.Fprint(r.errOut, label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return ErrAborted
		}
		*dst = strings.TrimSpace(scanner.Text())
		return nil
	}
	if err := ask("Tên đăng nhập: ", &d.Username); err != nil {
		return err
	}
	return ask("Mật khẩu: ", &d.Password)
}

func (r *Runner) logout(ctx context.Context) error {
	if err := r.pos.Logout(ctx); err != nil {
		return err
	}
	r.toast("Đã đăng xuất.")
	return nil
}

func (r *Runner) whoami(ctx context.Context, opts *Options) error {
	s, err := r.pos.Restore(ctx)
	if err != nil {
		return err
	}
	expiry, expErr := session.AccessTokenExpiry(s.AccessToken)
	return r.emit(opts, s.User, func(w io.Writer) {
		t := newFields()
		t.AddRow("Người dùng:", userName(s.User))
		t.AddRow("Tài khoản:", s.User.Username)
		t.AddRow("Vai trò:", roleLabel(s.User.Role))
		if expErr == nil {
			t.AddRow("Phiên hết hạn:", formatDateTime(expiry))
		}
		fmt.Fprintln(w, t)
	})
}

func (r *Runner) listRoutes(opts *Options) error {
	paths := make([]string, 0, len(routes.All)+1)
	paths = append(paths, string(routes.Login))
	for _, route := range routes.All {
		paths = append(paths, string(route))
	}
	return r.emit(opts, paths, func(w io.Writer) {
		for _, p := range paths {
			fmt.Fprintln(w, p)
		}
	})
}

func isTransport(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.Kind == api.KindTransport
}

func userName(u *pos.User) string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

func roleLabel(role string) string {
	switch role {
	case pos.RoleSuperAdmin:
		return "Quản trị viên"
	case pos.RoleAccountant:
		return "Kế toán"
	default:
		return orDash(role)
	}
}
