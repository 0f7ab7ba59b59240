// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package exchange provides a client that trades an authorization code and
// PKCE code verifier for tokens at a backend token endpoint.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/cap-pkce/internal/strutils"
	sdkHttp "github.com/hashicorp/cap-pkce/sdk/http"
)

// maxResponseSize bounds how much of a token response is read.
const maxResponseSize = 1 << 20

// Client exchanges authorization codes for tokens.  It's safe for concurrent
// use.
type Client struct {
	endpoint     string
	client       *http.Client
	logger       hclog.Logger
	strictStatus bool
}

// tokenRequest is the body posted to the token endpoint.
type tokenRequest struct {
	AuthorizationCode string `json:"authorization_code"`
	CodeVerifier      string `json:"code_verifier"`
}

// NewClient creates a Client for the token endpoint.  Unless WithHTTPClient is
// used, the client's http.Client carries a cookie jar so cookies the endpoint
// sets are included on later requests.
//
// Supported options: WithHTTPClient, WithProviderCA, WithLogger,
// WithStrictStatus
func NewClient(endpoint string, opt ...Option) (*Client, error) {
	const op = "exchange.NewClient"
	if endpoint == "" {
		return nil, fmt.Errorf("%s: missing endpoint: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: endpoint %q is invalid: %w", op, endpoint, ErrInvalidParameter)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) || u.Host == "" {
		return nil, fmt.Errorf("%s: endpoint %q is not an absolute http or https url: %w", op, endpoint, ErrInvalidParameter)
	}

	opts := getClientOpts(opt...)
	hc := opts.withHTTPClient
	if hc == nil {
		hc, err = sdkHttp.NewClient(opts.withProviderCA)
		if err != nil {
			if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
				return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
			}
			return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
		}
	}
	return &Client{
		endpoint:     endpoint,
		client:       hc,
		logger:       opts.withLogger,
		strictStatus: opts.withStrictStatus,
	}, nil
}

// Endpoint returns the token endpoint url.
func (c *Client) Endpoint() string { return c.endpoint }

// Exchange posts the authorization code and code verifier to the token
// endpoint and decodes the JSON response.  The origin, when not empty, is sent
// as the request's Origin header.
//
// The response status is not inspected unless the Client was created
// WithStrictStatus; a non-2xx response with a JSON body decodes like a
// successful one.  A JSON value other than an object (an array, string,
// number or bool) decodes to an empty TokenResponse.  Transport failures,
// bodies that aren't JSON, a JSON null and bodies larger than 1 MiB are
// errors.
func (c *Client) Exchange(ctx context.Context, code, verifier, origin string) (*TokenResponse, error) {
	const op = "Client.Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: missing authorization code: %w", op, ErrInvalidParameter)
	}
	if verifier == "" {
		return nil, fmt.Errorf("%s: missing code verifier: %w", op, ErrInvalidParameter)
	}

	body, err := json.Marshal(tokenRequest{AuthorizationCode: code, CodeVerifier: verifier})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}

	c.logger.Debug("exchanging authorization code", "endpoint", c.endpoint)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.strictStatus {
			return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrUnexpectedStatus)
		}
		c.logger.Warn("token endpoint returned a non-success status", "status", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: unable to read body: %s", op, ErrRequestFailed, err)
	}
	if len(raw) > maxResponseSize {
		return nil, fmt.Errorf("%s: body exceeds %d bytes: %w", op, maxResponseSize, ErrInvalidResponse)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidResponse, err)
	}
	var fields map[string]interface{}
	switch v := decoded.(type) {
	case nil:
		return nil, fmt.Errorf("%s: body is JSON null: %w", op, ErrInvalidResponse)
	case map[string]interface{}:
		fields = v
	default:
		// arrays, strings, numbers and bools carry no token fields
		c.logger.Warn("token response is not a JSON object", "type", fmt.Sprintf("%T", v))
	}

	tr := NewTokenResponse(fields)
	c.logger.Debug("token response received",
		"status", resp.StatusCode,
		"access_token", tr.AccessToken() != "",
		"refresh_token", tr.RefreshToken() != "",
		"user_id", tr.UserID() != "",
	)
	return tr, nil
}
