// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/cap-pkce/sdk/id"
)

const (
	// DefaultBrowserCookie is the name of the cookie identifying a browser.
	DefaultBrowserCookie = "pkce_browser"

	// BrowserCookieMaxAge is the lifetime of the browser cookie: 30 days.
	BrowserCookieMaxAge = 30 * 24 * 60 * 60

	browserIDPrefix = "br"
)

// Browsers scopes a shared persistent Storage to one browser, the way a
// browser's localStorage belongs to that browser alone.  A browser is
// identified by a long lived cookie and its keys are stored as
// "<browser id>/<key>".
type Browsers struct {
	cookieName string
}

// NewBrowsers creates a Browsers.  An empty cookieName uses
// DefaultBrowserCookie.
func NewBrowsers(cookieName string) *Browsers {
	if cookieName == "" {
		cookieName = DefaultBrowserCookie
	}
	return &Browsers{cookieName: cookieName}
}

// CookieName returns the name of the browser cookie.
func (b *Browsers) CookieName() string { return b.cookieName }

// Bind returns base scoped to the request's browser.  A request without a
// well formed browser cookie is a new browser: an id is created and its cookie
// is set on w, so Bind must be called before the header is written.
func (b *Browsers) Bind(w http.ResponseWriter, req *http.Request, base Storage) (Storage, error) {
	const op = "Browsers.Bind"
	if w == nil || req == nil || base == nil {
		return nil, fmt.Errorf("%s: response writer, request and storage are required: %w", op, ErrNilParameter)
	}
	bid := ""
	if c, err := req.Cookie(b.cookieName); err == nil && validBrowserID(c.Value) {
		bid = c.Value
	}
	if bid == "" {
		var err error
		if bid, err = id.NewSecret(browserIDPrefix); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     b.cookieName,
			Value:    bid,
			Path:     "/",
			MaxAge:   BrowserCookieMaxAge,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	ns, err := NewNamespace(base, bid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ns, nil
}

// validBrowserID reports whether s has the shape of an id made by Bind.
// Anything else, like a value containing the key separator, is replaced.
func validBrowserID(s string) bool {
	rest, ok := strings.CutPrefix(s, browserIDPrefix+"_")
	if !ok || len(rest) != id.SecretLength {
		return false
	}
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// Namespace is a Storage which prefixes every key with "<name>/" before
// passing it to its base Storage.
type Namespace struct {
	base   Storage
	prefix string
}

// ensure that Namespace implements the Storage interface
var _ Storage = (*Namespace)(nil)

// NewNamespace creates a Namespace of base.
func NewNamespace(base Storage, name string) (*Namespace, error) {
	const op = "storage.NewNamespace"
	if base == nil {
		return nil, fmt.Errorf("%s: storage is nil: %w", op, ErrNilParameter)
	}
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%s: name %q must be non-empty and free of \"/\": %w", op, name, ErrInvalidParameter)
	}
	return &Namespace{base: base, prefix: name + "/"}, nil
}

// Get implements Storage.Get
func (n *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	return n.base.Get(ctx, n.prefix+key)
}

// Set implements Storage.Set
func (n *Namespace) Set(ctx context.Context, key, value string) error {
	const op = "Namespace.Set"
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	return n.base.Set(ctx, n.prefix+key, value)
}
