// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"fmt"

	"github.com/hashicorp/vault/sdk/helper/base62"
)

const (
	// DefaultLength is the length of the random part of an id from New.
	DefaultLength = 10

	// SecretLength is the length of the random part of an id from
	// NewSecret.
	SecretLength = 32
)

// New generates an ID with an optional prefix.
func New(optionalPrefix string) (string, error) {
	return newID(optionalPrefix, DefaultLength)
}

// NewSecret generates an ID with an optional prefix which is long enough to
// be used as a bearer value, like a browser or session cookie.
func NewSecret(optionalPrefix string) (string, error) {
	return newID(optionalPrefix, SecretLength)
}

func newID(optionalPrefix string, length int) (string, error) {
	id, err := base62.Random(length)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
