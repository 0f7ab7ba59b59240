// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// cappkce provides the client side of an OAuth2 authorization code callback
// with PKCE (RFC 7636).
//
// Primary packages:
//
//   - pkce: code verifiers and S256 code challenges.
//   - exchange: trades an authorization code and code verifier for tokens
//     with a backend token endpoint.
//   - callback: runs the callback for a page, persists the returned tokens
//     to the persistent, session and cookie tiers and schedules the redirect
//     to the dashboard.  Callback serves it over http.
//   - storage: the storage tiers.
//
// cmd/callbackd is a server built from these packages.
package cappkce
