// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/cap-pkce/storage"
)

// Callback creates an http.HandlerFunc which runs h for each request.  The
// request url is the page url.  The persistent tier is the handler's
// persistent Storage scoped to the requesting browser by browsers, the
// session tier is the request's browser session in sessions and the cookie
// tier is the response (Set-Cookie headers).
//
// The redirect the Handler schedules is cancelled; the browser follows the
// redirect rendered by sFn instead.  Every failure reaches eFn, including
// those before the exchange which raise no alert (Result.Alerted is false, or
// the Result is nil).  Nil sFn or eFn use DefaultSuccess and DefaultError.
func Callback(h *Handler, browsers *storage.Browsers, sessions *storage.Sessions, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.Callback"
	if h == nil {
		return nil, fmt.Errorf("%s: handler is nil: %w", op, ErrNilParameter)
	}
	if browsers == nil {
		return nil, fmt.Errorf("%s: browsers is nil: %w", op, ErrNilParameter)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%s: sessions is nil: %w", op, ErrNilParameter)
	}
	if sFn == nil {
		sFn = DefaultSuccess
	}
	if eFn == nil {
		eFn = DefaultError
	}
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		pageURL := requestURL(req)
		if pageURL.Query().Get(CodeParam) == "" {
			sFn(&Result{State: StateIdle}, w, req)
			return
		}

		persistent, err := browsers.Bind(w, req, h.opts.withPersistent)
		if err != nil {
			eFn(nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		session, err := sessions.Bind(w, req)
		if err != nil {
			eFn(nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		res, err := h.Handle(req.Context(), pageURL, browserPage{},
			WithPersistentStorage(persistent),
			WithSessionStorage(session),
			WithCookieWriter(&storage.ResponseCookies{W: w}),
		)
		if err != nil {
			eFn(res, err, w, req)
			return
		}
		res.CancelRedirect()
		sFn(res, w, req)
	}, nil
}

// browserPage stands in for the remote browser page.  Navigation and alerts
// are rendered into the response by the response funcs.
type browserPage struct{}

func (browserPage) Navigate(string) {}
func (browserPage) Alert(string)    {}

// requestURL reconstructs the absolute url the browser requested.
func requestURL(req *http.Request) *url.URL {
	u := *req.URL
	u.Host = req.Host
	switch {
	case req.TLS != nil:
		u.Scheme = "https"
	case strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https"):
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	return &u
}
