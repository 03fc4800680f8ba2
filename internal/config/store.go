package config

import "sync"

// ChangeHandler is called with the new configuration after it changes.
type ChangeHandler func(cfg Config)

// Store holds the active configuration. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	cfg      Config
	handlers []ChangeHandler
}

// NewStore creates a store holding cfg.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns the active configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the active configuration and notifies subscribers.
func (s *Store) Set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	handlers := make([]ChangeHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h(cfg)
		}
	}
}

// Subscribe registers a change handler and returns a function removing it.
func (s *Store) Subscribe(h ChangeHandler) func() {
	if h == nil {
		return func() {}
	}

	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	index := len(s.handlers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Nil out instead of removing so other indexes stay valid.
		if index < len(s.handlers) {
			s.handlers[index] = nil
		}
	}
}
