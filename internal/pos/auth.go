package pos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/query"
	"steelpos/internal/routes"
	"steelpos/internal/session"

	"go.uber.org/zap"
)

var whoAmIKey = query.Key{"auth", "whoami"}

// Login signs in and stores the session. Nothing is written when the backend
// rejects the credentials.
func (c *Client) Login(ctx context.Context, username, password string) (User, routes.Route, error) {
	result, err := api.Do[loginResult](ctx, c.api, api.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   LoginInput{Username: strings.TrimSpace(username), Password: password},
		Public: true,
	})
	if err != nil {
		c.logger.Info("login rejected", zap.String("username", username), zap.Error(err))
		return User{}, routes.Login, err
	}
	if result.AccessToken == "" || result.User == nil {
		return User{}, routes.Login, ErrMissingTokens
	}

	if err := c.store.Save(ctx, session.Session{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	}); err != nil {
		return User{}, routes.Login, fmt.Errorf("saving session: %w", err)
	}

	c.logger.Info("signed in", zap.Int64("user_id", result.User.ID), zap.String("role", result.User.Role))
	return *result.User, routes.Dashboard, nil
}

// Logout tells the backend when a refresh token is known, then drops the
// stored session and every cached query whatever the backend answered.
func (c *Client) Logout(ctx context.Context) error {
	s, err := c.store.Load(ctx)
	if err == nil && s.RefreshToken != "" {
		_, callErr := c.api.Call(ctx, api.Request{
			Method:  http.MethodPost,
			Path:    "/auth/logout",
			Body:    map[string]string{"refresh_token": s.RefreshToken},
			Timeout: api.TimeoutShort,
		})
		if callErr != nil {
			c.logger.Warn("logout call failed", zap.Error(callErr))
		}
	}

	c.cache.Clear()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	c.logger.Info("signed out")
	return nil
}

// WhoAmI fetches the current user and refreshes the stored copy.
func (c *Client) WhoAmI(ctx context.Context) (User, error) {
	data, _, err := c.cache.Fetch(ctx, whoAmIKey, 0, func(ctx context.Context) (any, error) {
		return api.Do[User](ctx, c.api, api.Request{Method: http.MethodGet, Path: "/auth/whoami"})
	})
	if err != nil {
		return User{}, err
	}
	user := data.(User)

	s, err := c.store.Load(ctx)
	if err != nil {
		return user, nil
	}
	s.User = &user
	if err := c.store.Save(ctx, s); err != nil {
		c.logger.Warn("stored user not updated", zap.Error(err))
	}
	return user, nil
}

// Refresh trades the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	s, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}
	if s.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	result, err := api.Do[loginResult](ctx, c.api, api.Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   map[string]string{"refresh_token": s.RefreshToken},
		Public: true,
	})
	if err != nil {
		if api.IsAuth(err) {
			c.cache.Clear()
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				c.logger.Warn("session not cleared", zap.Error(clearErr))
			}
		}
		return err
	}
	if result.AccessToken == "" {
		return ErrMissingTokens
	}
	if err := c.store.SaveTokens(ctx, result.AccessToken, result.RefreshToken); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}
	c.logger.Debug("access token refreshed")
	return nil
}

// Restore checks the stored session at startup. A session the backend no
// longer accepts is cleared; a network failure keeps it for the next try.
func (c *Client) Restore(ctx context.Context) (session.Session, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return session.Session{}, err
	}
	if !s.Authenticated() {
		return session.Session{}, session.ErrNoSession
	}

	if exp, err := session.AccessTokenExpiry(s.AccessToken); err == nil && !exp.After(c.clock.Now()) && s.RefreshToken != "" {
		if err := c.Refresh(ctx); err != nil {
			return session.Session{}, err
		}
	}

	user, err := c.WhoAmI(ctx)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Kind != api.KindTransport {
			c.cache.Clear()
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				c.logger.Warn("session not cleared", zap.Error(clearErr))
			}
		}
		return session.Session{}, err
	}

	s, err = c.store.Load(ctx)
	if err != nil {
		return session.Session{}, err
	}
	s.User = &user
	return s, nil
}

// Current returns the stored session without calling the backend.
func (c *Client) Current(ctx context.Context) (session.Session, error) {
	return c.store.Load(ctx)
}
