// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// CookieRecorder is an in-memory CookieWriter.  A cookie replaces an earlier
// one with the same name and path, like a browser cookie jar.
type CookieRecorder struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

// ensure that CookieRecorder implements the CookieWriter interface
var _ CookieWriter = (*CookieRecorder)(nil)

// SetCookie implements CookieWriter.SetCookie
func (r *CookieRecorder) SetCookie(_ context.Context, c *http.Cookie) error {
	const op = "CookieRecorder.SetCookie"
	if err := validCookie(c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cp := *c
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.cookies {
		if existing.Name == cp.Name && existing.Path == cp.Path {
			r.cookies[i] = &cp
			return nil
		}
	}
	r.cookies = append(r.cookies, &cp)
	return nil
}

// Cookies returns a copy of the recorded cookies in write order.
func (r *CookieRecorder) Cookies() []*http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*http.Cookie, 0, len(r.cookies))
	for _, c := range r.cookies {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

// Cookie returns the recorded cookie with the given name, or nil.
func (r *CookieRecorder) Cookie(name string) *http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cookies {
		if c.Name == name {
			cp := *c
			return &cp
		}
	}
	return nil
}

// ResponseCookies is a CookieWriter which sends cookies to the browser as
// Set-Cookie headers.  It must be used before the response header is written.
type ResponseCookies struct {
	W http.ResponseWriter
}

// ensure that ResponseCookies implements the CookieWriter interface
var _ CookieWriter = (*ResponseCookies)(nil)

// SetCookie implements CookieWriter.SetCookie
func (r *ResponseCookies) SetCookie(_ context.Context, c *http.Cookie) error {
	const op = "ResponseCookies.SetCookie"
	if r.W == nil {
		return fmt.Errorf("%s: response writer is nil: %w", op, ErrNilParameter)
	}
	if err := validCookie(c); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	http.SetCookie(r.W, c)
	return nil
}

func validCookie(c *http.Cookie) error {
	if c == nil {
		return fmt.Errorf("cookie is nil: %w", ErrNilParameter)
	}
	if err := c.Valid(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCookie, err)
	}
	return nil
}
