// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package exchange

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")
	ErrRequestFailed    = errors.New("token request failed")
	ErrInvalidResponse  = errors.New("invalid token response")
	ErrUnexpectedStatus = errors.New("unexpected token response status")
)
