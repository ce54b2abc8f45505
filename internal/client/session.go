package client

import (
	"context"
	"fmt"
	"sync"
)

// Session coordinates refreshes of the cookie session. At most one refresh
// runs at a time; requests that hit 401 meanwhile wait for its outcome.
type Session struct {
	refresh func(context.Context) error

	mu         sync.Mutex
	refreshing bool
	loggingOut bool
	// epoch counts completed refreshes.
	epoch   uint64
	lastErr error
	waiters []chan error
}

// NewSession returns an idle session that renews credentials with refresh.
func NewSession(refresh func(context.Context) error) *Session {
	return &Session{refresh: refresh}
}

// Epoch tags a request at send time.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Refreshing reports whether a refresh is in flight.
func (s *Session) Refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

// OnUnauthorized decides what happens to a request that got 401. sent is
// the epoch the request was tagged with, retried whether it is already a
// replay, cause the 401 itself. A nil result means the request should be
// replayed once.
func (s *Session) OnUnauthorized(ctx context.Context, sent uint64, retried bool, cause error) error {
	s.mu.Lock()
	switch {
	case s.loggingOut:
		s.mu.Unlock()
		return ErrLoggingOut
	case retried:
		s.mu.Unlock()
		return cause
	case sent < s.epoch:
		// a refresh completed after this request was sent
		err := s.lastErr
		s.mu.Unlock()
		return err
	case s.refreshing:
		ch := make(chan error, 1)
		s.waiters = append(s.waiters, ch)
		s.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.refreshing = true
	s.mu.Unlock()

	// queued requests wait on this even if ctx is cancelled
	err := s.refresh(context.WithoutCancel(ctx))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	s.mu.Lock()
	s.refreshing = false
	s.epoch++
	s.lastErr = err
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}

// BeginLogout suppresses refresh-on-401 and rejects queued requests.
func (s *Session) BeginLogout() {
	s.mu.Lock()
	s.loggingOut = true
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- ErrLoggingOut
	}
}

// EndLogout re-enables refreshes.
func (s *Session) EndLogout() {
	s.mu.Lock()
	s.loggingOut = false
	s.mu.Unlock()
}
