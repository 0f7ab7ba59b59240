// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"github.com/hashicorp/cap-pkce/exchange"
	"github.com/hashicorp/cap-pkce/pkce"
	"github.com/hashicorp/cap-pkce/sdk/id"
)

// Storage keys and cookie names written by a Handler.
const (
	KeyCodeVerifier  = "code_verifier"
	KeyCodeChallenge = "code_challenge"
	KeyAccessToken   = "access_token"

	CookieRefreshToken    = "refresh_token"
	CookieHasRefreshToken = "has_refresh_token"
	CookieUsername        = "username"
)

const (
	// CodeParam is the page url query parameter carrying the authorization
	// code.
	CodeParam = "code"

	// CookieMaxAge is the lifetime of the token cookies: 30 days.
	CookieMaxAge = 30 * 24 * 60 * 60

	// DefaultRedirectDelay is how long after a successful exchange the page
	// is sent to the dashboard.
	DefaultRedirectDelay = 3 * time.Second

	// AlertMessage is shown to the user when the callback fails.
	AlertMessage = "Authentication failed. Please try again."
)

// Exchanger trades an authorization code and code verifier for tokens.
// *exchange.Client is the usual implementation.
type Exchanger interface {
	Exchange(ctx context.Context, code, verifier, origin string) (*exchange.TokenResponse, error)
}

// ensure that exchange.Client implements the Exchanger interface
var _ Exchanger = (*exchange.Client)(nil)

// Page is the browser page a callback runs in.
type Page interface {
	// Navigate sends the page to url.
	Navigate(url string)

	// Alert shows the user a blocking message.
	Alert(msg string)
}

// Result describes one Handle call.
type Result struct {
	// State is the attempt's final state.
	State State

	// Verifier is the code verifier generated for the attempt.  It's nil when
	// the page carried no authorization code.
	Verifier *pkce.Verifier

	// Token is the token endpoint's response, when the exchange succeeded.
	Token *exchange.TokenResponse

	// Alerted is true when the attempt failed after the exchange started and
	// the page was shown AlertMessage.
	Alerted bool

	// RedirectURL and RedirectDelay describe the scheduled redirect of a
	// succeeded attempt.
	RedirectURL   string
	RedirectDelay time.Duration

	redirect clockwork.Timer
}

// CancelRedirect stops the scheduled redirect.  It returns false if there was
// none or it already happened.
func (r *Result) CancelRedirect() bool {
	if r == nil || r.redirect == nil {
		return false
	}
	return r.redirect.Stop()
}

// Handler runs the authorization code callback.  It's safe for concurrent
// use; each Handle call is an independent attempt.
type Handler struct {
	exchanger    Exchanger
	dashboardURL string
	opts         handlerOptions
	logger       hclog.Logger
}

// NewHandler creates a Handler which exchanges codes with e and redirects to
// dashboardURL on success.
//
// Supported options: WithPersistentStorage, WithSessionStorage,
// WithCookieWriter, WithClock, WithLogger, WithRedirectDelay,
// WithVerifierLength, WithRandReader
func NewHandler(e Exchanger, dashboardURL string, opt ...Option) (*Handler, error) {
	const op = "callback.NewHandler"
	if e == nil {
		return nil, fmt.Errorf("%s: exchanger is nil: %w", op, ErrNilParameter)
	}
	if dashboardURL == "" {
		return nil, fmt.Errorf("%s: missing dashboard url: %w", op, ErrInvalidParameter)
	}
	if _, err := url.Parse(dashboardURL); err != nil {
		return nil, fmt.Errorf("%s: dashboard url %q is invalid: %w", op, dashboardURL, ErrInvalidParameter)
	}
	opts := getHandlerOpts(opt...)
	if opts.withRedirectDelay < 0 {
		return nil, fmt.Errorf("%s: negative redirect delay: %w", op, ErrInvalidParameter)
	}
	if opts.withVerifierLength < pkce.MinVerifierLength || opts.withVerifierLength > pkce.MaxVerifierLength {
		return nil, fmt.Errorf("%s: verifier length %d is outside [%d, %d]: %w", op, opts.withVerifierLength, pkce.MinVerifierLength, pkce.MaxVerifierLength, ErrInvalidParameter)
	}
	return &Handler{
		exchanger:    e,
		dashboardURL: dashboardURL,
		opts:         opts,
		logger:       opts.withLogger.Named("callback"),
	}, nil
}

// DashboardURL returns the url a successful attempt redirects to.
func (h *Handler) DashboardURL() string { return h.dashboardURL }

// RedirectDelay returns how long a successful attempt waits before it
// redirects.
func (h *Handler) RedirectDelay() time.Duration { return h.opts.withRedirectDelay }

// Handle runs one callback attempt for the page at pageURL.
//
// A page without a non-empty "code" query parameter is not a callback: Handle
// returns a StateIdle result and touches nothing.
//
// Otherwise a new code verifier and challenge are written to the persistent
// tier, then the code is exchanged and the returned tokens are written to the
// cookie and session tiers.  Absent token fields are skipped.  On success a
// redirect to the dashboard is scheduled on the handler's clock.  Any error
// during the exchange or the token writes raises page.Alert(AlertMessage)
// once, schedules no redirect and leaves earlier writes in place; the error is
// also returned.  Errors before the exchange (verifier generation or
// persistence) are returned without an alert.
//
// Token values go into cookies as they are.  A value http.Cookie rejects
// (one with ';', '"', '\', control or non-ASCII bytes) fails the attempt
// with ErrPersistFailed and the alert, where a browser writing
// document.cookie would keep the text before a ';' and carry on.
//
// The storage tier options given here override the handler's for this call.
func (h *Handler) Handle(ctx context.Context, pageURL *url.URL, page Page, opt ...Option) (*Result, error) {
	const op = "Handler.Handle"
	if pageURL == nil {
		return nil, fmt.Errorf("%s: page url is nil: %w", op, ErrNilParameter)
	}
	if page == nil {
		return nil, fmt.Errorf("%s: page is nil: %w", op, ErrNilParameter)
	}
	res := &Result{State: StateIdle}

	code := pageURL.Query().Get(CodeParam)
	if code == "" {
		return res, nil
	}

	opts := h.opts
	ApplyOpts(&opts, opt...)

	attempt, err := id.New("cb")
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("%s: %w", op, err)
	}
	logger := h.logger.With("attempt", attempt)

	v, err := pkce.NewVerifier(pkce.WithLength(opts.withVerifierLength), pkce.WithRandReader(opts.withRandReader))
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("%s: %w", op, err)
	}
	res.Verifier = v
	if err := opts.withPersistent.Set(ctx, KeyCodeVerifier, v.Verifier()); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("%s: %w: %s: %s", op, ErrPersistFailed, KeyCodeVerifier, err)
	}
	if err := opts.withPersistent.Set(ctx, KeyCodeChallenge, v.Challenge()); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("%s: %w: %s: %s", op, ErrPersistFailed, KeyCodeChallenge, err)
	}

	res.State = StateExchanging
	logger.Debug("exchanging authorization code")
	tk, err := h.exchangeAndPersist(ctx, &opts, code, v, origin(pageURL))
	if err != nil {
		res.State = StateFailed
		logger.Error("callback failed", "error", err)
		page.Alert(AlertMessage)
		res.Alerted = true
		return res, fmt.Errorf("%s: %w", op, err)
	}
	res.Token = tk
	res.State = StateSucceeded
	res.RedirectURL = h.dashboardURL
	res.RedirectDelay = opts.withRedirectDelay
	res.redirect = opts.withClock.AfterFunc(opts.withRedirectDelay, func() {
		page.Navigate(h.dashboardURL)
	})
	logger.Info("callback succeeded", "redirect", h.dashboardURL, "delay", opts.withRedirectDelay)
	return res, nil
}

// exchangeAndPersist exchanges the code and writes the response's tokens.
func (h *Handler) exchangeAndPersist(ctx context.Context, opts *handlerOptions, code string, v *pkce.Verifier, origin string) (*exchange.TokenResponse, error) {
	tk, err := h.exchanger.Exchange(ctx, code, v.Verifier(), origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	if tk == nil {
		return nil, fmt.Errorf("%w: empty token response", ErrExchangeFailed)
	}

	if rt := tk.RefreshToken(); rt != "" {
		if err := opts.withCookies.SetCookie(ctx, tokenCookie(CookieRefreshToken, string(rt))); err != nil {
			return nil, fmt.Errorf("%w: %s cookie: %w", ErrPersistFailed, CookieRefreshToken, err)
		}
		if err := opts.withCookies.SetCookie(ctx, tokenCookie(CookieHasRefreshToken, "true")); err != nil {
			return nil, fmt.Errorf("%w: %s cookie: %w", ErrPersistFailed, CookieHasRefreshToken, err)
		}
	}
	if at := tk.AccessToken(); at != "" {
		if err := opts.withSession.Set(ctx, KeyAccessToken, string(at)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrPersistFailed, KeyAccessToken, err)
		}
	}
	if uid := tk.UserID(); uid != "" {
		if err := opts.withCookies.SetCookie(ctx, tokenCookie(CookieUsername, uid)); err != nil {
			return nil, fmt.Errorf("%w: %s cookie: %w", ErrPersistFailed, CookieUsername, err)
		}
	}
	return tk, nil
}

func tokenCookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
	}
}

// origin returns the scheme://host origin of u, or "" when u isn't absolute.
func origin(u *url.URL) string {
	if u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
