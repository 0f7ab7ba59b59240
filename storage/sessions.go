// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/cap-pkce/sdk/id"
)

// DefaultSessionCookie is the name of the browser session cookie.
const DefaultSessionCookie = "pkce_session"

// Sessions is a server side registry of session tiers.  Each browser session
// is identified by a cookie written without Max-Age or Expires, so the browser
// forgets it, and with it the session tier, when the session ends.
//
// The server can't see a browser session end, so a session unused for the
// TTL is dropped, and when the registry is full the least recently used
// session makes room for a new one.
type Sessions struct {
	cookieName string
	opts       expiryOptions

	mu sync.Mutex
	m  map[string]*session
}

type session struct {
	st       *Memory
	lastUsed time.Time
}

// NewSessions creates an empty registry.  An empty cookieName uses
// DefaultSessionCookie.
//
// Supported options: WithClock, WithTTL, WithMaxEntries
func NewSessions(cookieName string, opt ...Option) *Sessions {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &Sessions{
		cookieName: cookieName,
		opts:       getExpiryOpts(sessionsDefaults(), opt...),
		m:          map[string]*session{},
	}
}

// CookieName returns the name of the session cookie.
func (s *Sessions) CookieName() string { return s.cookieName }

// Bind returns the session tier for the request's browser session.  When the
// request carries no live session cookie a new session is started and its
// cookie is set on w, so Bind must be called before the header is written.
func (s *Sessions) Bind(w http.ResponseWriter, req *http.Request) (Storage, error) {
	const op = "Sessions.Bind"
	if w == nil || req == nil {
		return nil, fmt.Errorf("%s: response writer and request are required: %w", op, ErrNilParameter)
	}
	if c, err := req.Cookie(s.cookieName); err == nil {
		if st, ok := s.Lookup(c.Value); ok {
			return st, nil
		}
	}
	sid, err := id.NewSecret("sess")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st := NewMemory()

	s.mu.Lock()
	now := s.opts.withClock.Now()
	s.expireLocked(now)
	if limit := s.opts.withMaxEntries; limit > 0 && len(s.m) >= limit {
		s.dropOldestLocked()
	}
	s.m[sid] = &session{st: st, lastUsed: now}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return st, nil
}

// Lookup returns the session tier for a live session id and marks it used.
func (s *Sessions) Lookup(sid string) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[sid]
	if !ok {
		return nil, false
	}
	now := s.opts.withClock.Now()
	if s.expired(sess, now) {
		delete(s.m, sid)
		return nil, false
	}
	sess.lastUsed = now
	return sess.st, true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(s.opts.withClock.Now())
	return len(s.m)
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.opts.withTTL > 0 && now.Sub(sess.lastUsed) >= s.opts.withTTL
}

// expireLocked drops idle sessions.  Callers must hold s.mu.
func (s *Sessions) expireLocked(now time.Time) {
	for sid, sess := range s.m {
		if s.expired(sess, now) {
			delete(s.m, sid)
		}
	}
}

// dropOldestLocked drops the least recently used session.  Callers must hold
// s.mu.
func (s *Sessions) dropOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for sid, sess := range s.m {
		if oldest == "" || sess.lastUsed.Before(oldestAt) {
			oldest, oldestAt = sid, sess.lastUsed
		}
	}
	delete(s.m, oldest)
}
