package session

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || (!m.session.Authenticated() && m.session.RefreshToken == "") {
		return Session{}, ErrNoSession
	}
	s := *m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	m.session = &s
	return nil
}

func (m *MemoryStore) SaveTokens(_ context.Context, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current Session
	if m.session != nil {
		current = *m.session
	}
	next := mergeTokens(current, accessToken, refreshToken)
	m.session = &next
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
