// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrPersistFailed    = errors.New("unable to persist")
	ErrExchangeFailed   = errors.New("code exchange failed")
)
