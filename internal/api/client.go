// Package api is the single HTTP boundary to the POS backend. It attaches the
// stored bearer token, normalises the {success, data, message} envelope into
// Response or *Error, and runs the one-shot token refresh on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"steelpos/internal/config"
	"steelpos/internal/metrics"
	"steelpos/internal/session"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-querystring/query"
	"go.uber.org/zap"
)

// Header names used by the backend token refresh middleware.
const (
	HeaderRefreshToken    = "X-Refresh-Token"
	HeaderNewAccessToken  = "X-New-Access-Token"
	HeaderNewRefreshToken = "X-New-Refresh-Token"
)

const maxErrorBody = 512

type Request struct {
	Method  string
	Path    string
	Body    any
	Query   any // url.Values, map[string]string or a struct with `url` tags
	Headers map[string]string
	Timeout time.Duration
	// Public requests carry no bearer token and never trigger a refresh.
	Public bool
	// Raw skips envelope decoding and returns the body as is.
	Raw    bool
	Files  []File
	Fields map[string]string
}

type File struct {
	Param   string
	Name    string
	Content []byte
}

type Response struct {
	Success bool
	Status  int
	Data    json.RawMessage
	Message string
	Headers http.Header
	Body    []byte
}

// Caller is what resource code needs from the client.
type Caller interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

type Client struct {
	http    *resty.Client
	store   session.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	state    AuthState
	onExpire []func()
}

func NewClient(cfg config.Config, store session.Store, m *metrics.Metrics, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
		SetHeader("Accept", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = TimeoutMedium
	}

	return &Client{
		http:    httpClient,
		store:   store,
		metrics: m,
		logger:  logger.Named("api"),
		timeout: timeout,
		state:   StateAuthorized,
	}
}

// Call performs req and returns the normalised response. A non-nil error is
// always *Error.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.do(ctx, req, "")
	if req.Public || !isUnauthorized(err) {
		if err == nil && !req.Public {
			c.setState(StateAuthorized)
		}
		return resp, err
	}
	return c.reauthorize(ctx, req, err)
}

// Raw fetches an authenticated binary resource such as an invoice PDF.
func (c *Client) Raw(ctx context.Context, path string, q any) ([]byte, error) {
	resp, err := c.Call(ctx, Request{Method: http.MethodGet, Path: path, Query: q, Raw: true, Timeout: TimeoutLong})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, req Request, refreshToken string) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.http.R().SetContext(ctx)
	if !req.Public {
		if token := c.accessToken(ctx); token != "" {
			r.SetAuthToken(token)
		}
	}
	if refreshToken != "" {
		r.SetHeader(HeaderRefreshToken, refreshToken)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}

	params, err := encodeQuery(req.Query)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "invalid query parameters", Err: err}
	}
	if len(params) > 0 {
		r.SetQueryParamsFromValues(params)
	}

	if len(req.Files) > 0 {
		for _, f := range req.Files {
			r.SetFileReader(f.Param, f.Name, bytes.NewReader(f.Content))
		}
		if len(req.Fields) > 0 {
			r.SetFormData(req.Fields)
		}
	} else if req.Body != nil {
		r.SetBody(req.Body)
	}

	start := time.Now()
	raw, err := r.Execute(method, req.Path)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(method, 0)
		c.logger.Debug("api call failed",
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Int64("ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return nil, &Error{Kind: KindTransport, Message: "network error", Err: err}
	}

	c.metrics.ObserveRequest(method, raw.StatusCode())
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", raw.StatusCode()),
		zap.Int64("ms", elapsed.Milliseconds()),
		zap.Bool("retried", refreshToken != ""),
	)

	resp, err := normalize(raw, req.Raw)
	if err != nil {
		return nil, err
	}
	if !req.Public {
		c.persistRotated(ctx, raw.Header())
	}
	return resp, nil
}

func (c *Client) accessToken(ctx context.Context) string {
	s, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			c.logger.Warn("session not readable", zap.Error(err))
		}
		return ""
	}
	return s.AccessToken
}

func (c *Client) persistRotated(ctx context.Context, header http.Header) {
	access := strings.TrimSpace(header.Get(HeaderNewAccessToken))
	if access == "" {
		return
	}
	refresh := strings.TrimSpace(header.Get(HeaderNewRefreshToken))
	if err := c.store.SaveTokens(ctx, access, refresh); err != nil {
		c.logger.Warn("rotated tokens not saved", zap.Error(err))
		return
	}
	c.logger.Debug("tokens rotated")
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// fields accepts {"field": "msg"} or {"field": ["msg", ...]}.
func (e envelope) fields() map[string]string {
	if len(e.Errors) == 0 {
		return nil
	}
	var flat map[string]string
	if err := json.Unmarshal(e.Errors, &flat); err == nil {
		return flat
	}
	var multi map[string][]string
	if err := json.Unmarshal(e.Errors, &multi); err == nil {
		out := make(map[string]string, len(multi))
		for k, v := range multi {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out
	}
	return nil
}

func normalize(raw *resty.Response, keepBody bool) (*Response, error) {
	status := raw.StatusCode()
	body := raw.Body()

	var env envelope
	var decodeErr error
	if len(body) > 0 && (!keepBody || raw.IsError()) {
		decodeErr = json.Unmarshal(body, &env)
	}

	if raw.IsError() {
		apiErr := &Error{Kind: KindHTTP, Status: status, Message: env.message(), Fields: env.fields()}
		if status == http.StatusUnauthorized {
			apiErr.Kind = KindAuth
		}
		if apiErr.Message == "" && decodeErr != nil {
			apiErr.Message = truncate(strings.TrimSpace(raw.String()), maxErrorBody)
		}
		return nil, apiErr
	}

	if keepBody {
		return &Response{Success: true, Status: status, Headers: raw.Header(), Body: body}, nil
	}
	if len(body) == 0 && status == http.StatusNoContent {
		return &Response{Success: true, Status: status, Headers: raw.Header()}, nil
	}
	if decodeErr != nil {
		return nil, &Error{Kind: KindHTTP, Status: status, Message: "invalid response body", Err: decodeErr}
	}
	if env.Success == nil {
		return nil, &Error{Kind: KindHTTP, Status: status, Message: ErrMissingSuccess.Error(), Err: ErrMissingSuccess}
	}
	if !*env.Success {
		return nil, &Error{Kind: KindHTTP, Status: status, Message: env.message(), Fields: env.fields()}
	}

	return &Response{
		Success: true,
		Status:  status,
		Data:    env.Data,
		Message: env.Message,
		Headers: raw.Header(),
		Body:    body,
	}, nil
}

func encodeQuery(q any) (url.Values, error) {
	switch v := q.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return v, nil
	case map[string]string:
		values := url.Values{}
		for k, s := range v {
			values.Set(k, s)
		}
		return values, nil
	default:
		values, err := query.Values(q)
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		return values, nil
	}
}

func isUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
