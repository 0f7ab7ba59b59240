// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package pkce

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidLength    = errors.New("invalid verifier length")
	ErrRandomFailed     = errors.New("random generation failed")
)
