// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

const (
	// DefaultFileTTL is how long an unchanged File entry is kept: the
	// lifetime of the browser cookie that scopes it.
	DefaultFileTTL = 30 * 24 * time.Hour

	// DefaultFileMaxEntries bounds the number of File entries.
	DefaultFileMaxEntries = 100_000

	// DefaultSessionTTL is how long an unused session is kept.
	DefaultSessionTTL = 12 * time.Hour

	// DefaultMaxSessions bounds the number of live sessions.
	DefaultMaxSessions = 10_000
)

// expiryOptions is the set of available options for NewFile and NewSessions.
type expiryOptions struct {
	withClock      clockwork.Clock
	withTTL        time.Duration
	withMaxEntries int
}

func fileDefaults() expiryOptions {
	return expiryOptions{
		withClock:      clockwork.NewRealClock(),
		withTTL:        DefaultFileTTL,
		withMaxEntries: DefaultFileMaxEntries,
	}
}

func sessionsDefaults() expiryOptions {
	return expiryOptions{
		withClock:      clockwork.NewRealClock(),
		withTTL:        DefaultSessionTTL,
		withMaxEntries: DefaultMaxSessions,
	}
}

func getExpiryOpts(defaults expiryOptions, opt ...Option) expiryOptions {
	opts := defaults
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClock provides the clock entry ages are measured with.
func WithClock(c clockwork.Clock) Option {
	return func(o interface{}) {
		if o, ok := o.(*expiryOptions); ok && c != nil {
			o.withClock = c
		}
	}
}

// WithTTL sets how long an entry is kept after it was last used.  Zero keeps
// entries until they're pushed out by WithMaxEntries.
func WithTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*expiryOptions); ok && d >= 0 {
			o.withTTL = d
		}
	}
}

// WithMaxEntries bounds the number of entries.  When full, the least recently
// used entry is dropped to make room.  Zero means no bound.
func WithMaxEntries(n int) Option {
	return func(o interface{}) {
		if o, ok := o.(*expiryOptions); ok && n >= 0 {
			o.withMaxEntries = n
		}
	}
}
