// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package config

import "os"

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

type configOptions struct {
	withEnvFile   string
	withLookupEnv func(string) (string, bool)
}

func configDefaults() configOptions {
	return configOptions{
		withLookupEnv: os.LookupEnv,
	}
}

func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithEnvFile provides a .env file.  Its values override the YAML file and
// are overridden by the process environment.  A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withEnvFile = path
		}
	}
}

// WithLookupEnv replaces os.LookupEnv as the source of the environment.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok && fn != nil {
			o.withLookupEnv = fn
		}
	}
}
