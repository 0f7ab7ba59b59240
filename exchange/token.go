// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package exchange

import (
	"encoding/json"

	"golang.org/x/oauth2"
)

// Response field names returned by the token endpoint.
const (
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
	FieldUserID       = "user_id"
)

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// TokenResponse is the decoded body of a token endpoint response.  Every
// field is optional; an absent field, or one that isn't a non-empty string,
// reads as "".
type TokenResponse struct {
	tk *oauth2.Token
}

// NewTokenResponse creates a TokenResponse from a decoded JSON object.
func NewTokenResponse(raw map[string]interface{}) *TokenResponse {
	tk := &oauth2.Token{
		AccessToken:  stringField(raw, FieldAccessToken),
		RefreshToken: stringField(raw, FieldRefreshToken),
	}
	return &TokenResponse{tk: tk.WithExtra(raw)}
}

// AccessToken returns the access_token, if present.
func (t *TokenResponse) AccessToken() AccessToken {
	return AccessToken(t.tk.AccessToken)
}

// RefreshToken returns the refresh_token, if present.
func (t *TokenResponse) RefreshToken() RefreshToken {
	return RefreshToken(t.tk.RefreshToken)
}

// UserID returns the user_id, if present.
func (t *TokenResponse) UserID() string {
	s, _ := t.tk.Extra(FieldUserID).(string)
	return s
}

// Token returns the response as an oauth2.Token.  Fields other than the
// access and refresh tokens are available via Token().Extra(name).
func (t *TokenResponse) Token() *oauth2.Token {
	return t.tk
}

func stringField(raw map[string]interface{}, name string) string {
	s, _ := raw[name].(string)
	return s
}
