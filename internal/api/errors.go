package api

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindTransport Kind = "transport"
	KindHTTP      Kind = "http"
	KindAuth      Kind = "auth"
)

var (
	ErrUnauthenticated = errors.New("session expired, sign in again")
	ErrMissingSuccess  = errors.New("response carries no success flag")
)

// Error is the single failure shape returned by Client.Call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status > 0 && e.Message != "":
		return fmt.Sprintf("api %s error: %d: %s", e.Kind, e.Status, e.Message)
	case e.Status > 0:
		return fmt.Sprintf("api %s error: %d %s", e.Kind, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("api %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("api %s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}
