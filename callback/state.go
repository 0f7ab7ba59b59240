// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

// State of one callback attempt.  An attempt starts Idle and, when the page
// carries an authorization code, moves through Exchanging to either
// Succeeded (redirect scheduled) or Failed (alert raised).
type State int

const (
	StateIdle State = iota
	StateExchanging
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExchanging:
		return "exchanging"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
