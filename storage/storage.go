// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package storage provides the key/value tiers a callback writes to: a
// persistent tier that survives restarts, a session tier scoped to one browser
// session, and a cookie tier.
package storage

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCookie    = errors.New("invalid cookie")
)

// Storage is a string key/value tier.
type Storage interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value for key, replacing any existing value.
	Set(ctx context.Context, key, value string) error
}

// CookieWriter is the cookie tier.  Cookies are written with all of their
// attributes, so unlike Storage it takes the whole *http.Cookie.
type CookieWriter interface {
	SetCookie(ctx context.Context, c *http.Cookie) error
}
