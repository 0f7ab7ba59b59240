// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package pkce

import "io"

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// verifierOptions is the set of available options for NewVerifier
type verifierOptions struct {
	withLength int
	withReader io.Reader
}

func verifierDefaults() verifierOptions {
	return verifierOptions{
		withLength: DefaultVerifierLength,
	}
}

func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLength provides an optional verifier length.  The length must be within
// the RFC 7636 bounds of MinVerifierLength and MaxVerifierLength.
func WithLength(n int) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifierOptions); ok {
			o.withLength = n
		}
	}
}

// WithRandReader provides an optional source of randomness.  When it's not
// provided, crypto/rand.Reader is used.
func WithRandReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifierOptions); ok {
			o.withReader = r
		}
	}
}
