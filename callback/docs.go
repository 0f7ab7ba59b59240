// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that handles the redirect back from an authorization
server in an OAuth2 authorization code flow with PKCE.

A Handler reads the authorization "code" from the page url, derives a fresh
code verifier and S256 challenge, exchanges the code for tokens and writes the
tokens to the storage tiers: refresh_token, has_refresh_token and username as
cookies, access_token to the session tier.  On success it schedules a redirect
to the dashboard; on any failure during the exchange it raises a single alert.

Callback wraps a Handler as an http.HandlerFunc, binding the cookie tier to
the response and the session tier to the browser session.
*/
package callback
