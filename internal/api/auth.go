package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Request timeouts by call class.
const (
	TimeoutShort  = 5 * time.Second
	TimeoutMedium = 10 * time.Second
	TimeoutLong   = 30 * time.Second
)

type AuthState string

const (
	StateAuthorized      AuthState = "authorized"
	StateRefreshing      AuthState = "refreshing"
	StateUnauthenticated AuthState = "unauthenticated"
)

func (c *Client) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnUnauthenticated registers fn to run after credentials were dropped
// because the backend rejected the refresh token.
func (c *Client) OnUnauthenticated(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = append(c.onExpire, fn)
}

func (c *Client) setState(s AuthState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// reauthorize retries req once with the stored refresh token attached. The
// retry goes through do directly so it can never start another refresh.
func (c *Client) reauthorize(ctx context.Context, req Request, first error) (*Response, error) {
	s, err := c.store.Load(ctx)
	if err != nil || s.RefreshToken == "" {
		c.metrics.ObserveRefresh("no_token")
		c.expire(ctx)
		return nil, unauthenticated(first)
	}

	c.setState(StateRefreshing)
	c.logger.Debug("access token rejected, retrying with refresh token", zap.String("path", req.Path))

	resp, err := c.do(ctx, req, s.RefreshToken)
	switch {
	case err == nil:
		c.metrics.ObserveRefresh("success")
		c.setState(StateAuthorized)
		return resp, nil
	case refreshRejected(err):
		c.metrics.ObserveRefresh("rejected")
		c.expire(ctx)
		return nil, unauthenticated(err)
	default:
		// The retry failed for another reason; keep the credentials.
		c.metrics.ObserveRefresh("error")
		c.setState(StateAuthorized)
		return nil, err
	}
}

// refreshRejected reports whether the backend refused the refresh token. A
// 403 on the first attempt is a permission error, on the retry it means the
// refresh token is no longer accepted.
func refreshRejected(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

func (c *Client) expire(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("session not cleared", zap.Error(err))
	}

	c.mu.Lock()
	c.state = StateUnauthenticated
	hooks := append([]func(){}, c.onExpire...)
	c.mu.Unlock()

	c.logger.Info("session expired")
	for _, fn := range hooks {
		fn()
	}
}

func unauthenticated(cause error) *Error {
	e := &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: ErrUnauthenticated.Error(), Err: ErrUnauthenticated}
	var apiErr *Error
	if errors.As(cause, &apiErr) && apiErr.Message != "" {
		e.Message = apiErr.Message
	}
	return e
}
