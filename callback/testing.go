// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"sync"

	"github.com/hashicorp/cap-pkce/exchange"
)

// TestPage is a Page which records navigations and alerts.  It's safe for
// concurrent use, since the redirect arrives from the clock's goroutine.
type TestPage struct {
	mu          sync.Mutex
	navigations []string
	alerts      []string
}

// ensure that TestPage implements the Page interface
var _ Page = (*TestPage)(nil)

// Navigate implements Page.Navigate
func (p *TestPage) Navigate(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
}

// Alert implements Page.Alert
func (p *TestPage) Alert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, msg)
}

// Navigations returns the urls navigated to, in order.
func (p *TestPage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Alerts returns the alert messages shown, in order.
func (p *TestPage) Alerts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.alerts...)
}

// TestExchanger is an Exchanger backed by a func.  It counts its calls and
// records the arguments of the last one.
type TestExchanger struct {
	Fn func(ctx context.Context, code, verifier, origin string) (*exchange.TokenResponse, error)

	mu           sync.Mutex
	calls        int
	lastCode     string
	lastVerifier string
	lastOrigin   string
}

// ensure that TestExchanger implements the Exchanger interface
var _ Exchanger = (*TestExchanger)(nil)

// Exchange implements Exchanger.Exchange
func (e *TestExchanger) Exchange(ctx context.Context, code, verifier, origin string) (*exchange.TokenResponse, error) {
	e.mu.Lock()
	e.calls++
	e.lastCode, e.lastVerifier, e.lastOrigin = code, verifier, origin
	e.mu.Unlock()
	return e.Fn(ctx, code, verifier, origin)
}

// Calls returns the number of Exchange calls.
func (e *TestExchanger) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Last returns the arguments of the last Exchange call.
func (e *TestExchanger) Last() (code, verifier, origin string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCode, e.lastVerifier, e.lastOrigin
}
