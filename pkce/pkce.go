// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package pkce generates the code verifier and S256 code challenge used by
// the Proof Key for Code Exchange extension to the OAuth2 authorization code
// flow (RFC 7636).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// ChallengeMethod represents PKCE code challenge methods (see RFC 7636).
type ChallengeMethod string

// S256 is the only challenge method supported.
const S256 ChallengeMethod = "S256"

// Alphabet is the unreserved character set a verifier is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

const (
	// DefaultVerifierLength is the verifier length used when none is given.
	DefaultVerifierLength = 128

	MinVerifierLength = 43
	MaxVerifierLength = 128
)

// RedactedVerifier is the redacted string or json for a code verifier
const RedactedVerifier = "[REDACTED: code_verifier]"

// GenerateRandomString returns a string of exactly length characters from
// Alphabet.  Each character is one random byte taken modulo len(Alphabet), so
// characters at the start of the alphabet are very slightly favored (256 is
// not a multiple of 66).  A nil r uses crypto/rand.Reader.
func GenerateRandomString(r io.Reader, length int) (string, error) {
	const op = "pkce.GenerateRandomString"
	if length < 0 {
		return "", fmt.Errorf("%s: negative length %d: %w", op, length, ErrInvalidParameter)
	}
	if r == nil {
		r = rand.Reader
	}
	b, err := uuid.GenerateRandomBytesWithReader(length, r)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", op, ErrRandomFailed, err)
	}
	var sb strings.Builder
	sb.Grow(length)
	for _, v := range b {
		sb.WriteByte(Alphabet[int(v)%len(Alphabet)])
	}
	return sb.String(), nil
}

// Challenge returns the base64url (unpadded) SHA-256 digest of the verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	enc := base64.StdEncoding.EncodeToString(sum[:])
	enc = strings.NewReplacer("+", "-", "/", "_").Replace(enc)
	return strings.TrimRight(enc, "=")
}

// Verifier is a code verifier and its derived challenge.  The zero value is
// not usable, see NewVerifier.
type Verifier struct {
	verifier  string
	challenge string
}

// NewVerifier creates a new Verifier with a freshly generated code verifier.
// Supported options: WithLength, WithRandReader
func NewVerifier(opt ...Option) (*Verifier, error) {
	const op = "pkce.NewVerifier"
	opts := getVerifierOpts(opt...)
	if opts.withLength < MinVerifierLength || opts.withLength > MaxVerifierLength {
		return nil, fmt.Errorf("%s: length %d is outside [%d, %d]: %w", op, opts.withLength, MinVerifierLength, MaxVerifierLength, ErrInvalidLength)
	}
	v, err := GenerateRandomString(opts.withReader, opts.withLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Verifier{
		verifier:  v,
		challenge: Challenge(v),
	}, nil
}

// Verifier returns the plain code verifier.  It's a secret until it's sent
// with the code exchange.
func (v *Verifier) Verifier() string { return v.verifier }

// Challenge returns the S256 code challenge.
func (v *Verifier) Challenge() string { return v.challenge }

// Method returns the challenge method, which is always S256.
func (v *Verifier) Method() ChallengeMethod { return S256 }

// String will redact the verifier
func (v *Verifier) String() string { return RedactedVerifier }

// MarshalJSON will redact the verifier
func (v *Verifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedVerifier)
}

// Valid reports whether s is a well formed RFC 7636 code verifier.
func Valid(s string) bool {
	if len(s) < MinVerifierLength || len(s) > MaxVerifierLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
