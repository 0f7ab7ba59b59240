// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/hashicorp/cap-pkce/exchange"
)

// SuccessResponseFunc is used by Callback to create a http response when the
// attempt didn't fail.  The Result's State is either StateSucceeded or, for a
// request without an authorization code, StateIdle.
//
// The function should use the http.ResponseWriter to send back whatever
// content (headers, html, JSON, etc) it wishes to the browser.  The token
// cookies and session cookie are already set on the response.
type SuccessResponseFunc func(r *Result, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callback to create a http response when the
// attempt failed.  The Result may be nil when the failure happened before the
// attempt started, and Result.Alerted is false when the attempt failed before
// the exchange.
type ErrorResponseFunc func(r *Result, e error, w http.ResponseWriter, req *http.Request)

var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Seconds}};url={{.URL}}">
<title>Signed in</title>
</head>
<body>
<p>Signed in. Continue to the <a href="{{.URL}}">dashboard</a>.</p>
</body>
</html>
`))

var alertPage = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sign in failed</title>
</head>
<body>
<script>alert({{.Message}});</script>
<noscript><p>{{.Message}}</p></noscript>
</body>
</html>
`))

// DefaultSuccess renders a page which sends the browser to the dashboard once
// the result's redirect delay has passed.  An idle result gets 204 No Content.
func DefaultSuccess(r *Result, w http.ResponseWriter, req *http.Request) {
	if r == nil || r.State != StateSucceeded {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = redirectPage.Execute(w, struct {
		Seconds int
		URL     string
	}{
		Seconds: int(r.RedirectDelay.Round(time.Second).Seconds()),
		URL:     r.RedirectURL,
	})
}

// DefaultError renders a page which raises AlertMessage when the attempt
// alerted the user.  Failures reaching the token endpoint are reported as 502
// Bad Gateway, everything else as 500.  A failure before the exchange, which
// raises no alert, gets a plain 500.
func DefaultError(r *Result, e error, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if r == nil || !r.Alerted {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	status := http.StatusInternalServerError
	if errors.Is(e, exchange.ErrRequestFailed) || errors.Is(e, exchange.ErrInvalidResponse) || errors.Is(e, exchange.ErrUnexpectedStatus) {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = alertPage.Execute(w, struct{ Message string }{Message: AlertMessage})
}
