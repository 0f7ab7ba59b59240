// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jonboulle/clockwork"

	"github.com/hashicorp/cap-pkce/pkce"
	"github.com/hashicorp/cap-pkce/storage"
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

// handlerOptions is the set of available options for NewHandler and
// Handler.Handle.
type handlerOptions struct {
	withPersistent     storage.Storage
	withSession        storage.Storage
	withCookies        storage.CookieWriter
	withClock          clockwork.Clock
	withLogger         hclog.Logger
	withRedirectDelay  time.Duration
	withVerifierLength int
	withRandReader     io.Reader
}

// handlerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func handlerDefaults() handlerOptions {
	return handlerOptions{
		withPersistent:     storage.NewMemory(),
		withSession:        storage.NewMemory(),
		withCookies:        &storage.CookieRecorder{},
		withClock:          clockwork.NewRealClock(),
		withLogger:         hclog.NewNullLogger(),
		withRedirectDelay:  DefaultRedirectDelay,
		withVerifierLength: pkce.DefaultVerifierLength,
	}
}

// getHandlerOpts gets the handler defaults and applies the opt overrides
// passed in.
func getHandlerOpts(opt ...Option) handlerOptions {
	opts := handlerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPersistentStorage provides the persistent tier the code verifier and
// challenge are written to.  Valid for NewHandler and Handle.
func WithPersistentStorage(s storage.Storage) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && s != nil {
			o.withPersistent = s
		}
	}
}

// WithSessionStorage provides the session tier the access_token is written
// to.  Valid for NewHandler and Handle.
func WithSessionStorage(s storage.Storage) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && s != nil {
			o.withSession = s
		}
	}
}

// WithCookieWriter provides the cookie tier.  Valid for NewHandler and
// Handle.
func WithCookieWriter(c storage.CookieWriter) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && c != nil {
			o.withCookies = c
		}
	}
}

// WithClock provides the clock used to delay the dashboard redirect.
func WithClock(c clockwork.Clock) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && c != nil {
			o.withClock = c
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithRedirectDelay overrides DefaultRedirectDelay.
func WithRedirectDelay(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withRedirectDelay = d
		}
	}
}

// WithVerifierLength overrides pkce.DefaultVerifierLength.
func WithVerifierLength(n int) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withVerifierLength = n
		}
	}
}

// WithRandReader provides the source of randomness for the code verifier.
func WithRandReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withRandReader = r
		}
	}
}
