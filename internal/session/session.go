// Package session persists the signed-in operator's credentials between runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Storage keys shared by every backend.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

var (
	ErrNoSession = errors.New("no stored session")
	ErrNoExpiry  = errors.New("token carries no exp claim")
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	IsActive bool   `json:"is_active,omitempty"`
}

type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// Store is the persistence boundary for credentials. Every implementation
// returns ErrNoSession from Load when nothing has been saved.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	// SaveTokens replaces the tokens and keeps the stored user. An empty
	// refresh token leaves the stored one untouched.
	SaveTokens(ctx context.Context, accessToken, refreshToken string) error
	Clear(ctx context.Context) error
}

// AccessTokenExpiry reads the exp claim without verifying the signature. The
// backend stays authoritative; this is only used to show session validity.
func AccessTokenExpiry(token string) (time.Time, error) {
	parsed, err := jwt.ParseString(token, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	exp := parsed.Expiration()
	if exp.IsZero() {
		return time.Time{}, ErrNoExpiry
	}
	return exp, nil
}

// record is the on-disk and in-redis shape, keyed like the browser storage.
type record map[string]json.RawMessage

func encode(s Session) (record, error) {
	rec := record{}
	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		rec[key] = raw
		return nil
	}
	if s.AccessToken != "" {
		if err := put(KeyAccessToken, s.AccessToken); err != nil {
			return nil, err
		}
	}
	if s.RefreshToken != "" {
		if err := put(KeyRefreshToken, s.RefreshToken); err != nil {
			return nil, err
		}
	}
	if s.User != nil {
		if err := put(KeyUser, s.User); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func decode(rec record) (Session, error) {
	var s Session
	if raw, ok := rec[KeyAccessToken]; ok {
		if err := json.Unmarshal(raw, &s.AccessToken); err != nil {
			return Session{}, fmt.Errorf("decode %s: %w", KeyAccessToken, err)
		}
	}
	if raw, ok := rec[KeyRefreshToken]; ok {
		if err := json.Unmarshal(raw, &s.RefreshToken); err != nil {
			return Session{}, fmt.Errorf("decode %s: %w", KeyRefreshToken, err)
		}
	}
	if raw, ok := rec[KeyUser]; ok && string(raw) != "null" {
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return Session{}, fmt.Errorf("decode %s: %w", KeyUser, err)
		}
		s.User = &u
	}
	if !s.Authenticated() && s.RefreshToken == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func mergeTokens(current Session, accessToken, refreshToken string) Session {
	current.AccessToken = accessToken
	if refreshToken != "" {
		current.RefreshToken = refreshToken
	}
	return current
}
