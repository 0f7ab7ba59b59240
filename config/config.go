// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package config loads the callbackd configuration from an optional YAML
// file, an optional .env file and PKCE_* environment variables, in that order
// of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp/cap-pkce/internal/strutils"
	"github.com/hashicorp/cap-pkce/pkce"
	"github.com/hashicorp/cap-pkce/storage"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidConfig    = errors.New("invalid config")
)

// Environment variables which override the file configuration.
const (
	EnvAuthEndpoint   = "PKCE_AUTH_ENDPOINT"
	EnvDashboardURL   = "PKCE_DASHBOARD_URL"
	EnvListenAddr     = "PKCE_LISTEN_ADDR"
	EnvRedirectDelay  = "PKCE_REDIRECT_DELAY"
	EnvVerifierLength = "PKCE_VERIFIER_LENGTH"
	EnvProviderCA     = "PKCE_PROVIDER_CA"
	EnvStorePath      = "PKCE_STORE_PATH"
	EnvSessionCookie  = "PKCE_SESSION_COOKIE"
	EnvSessionTTL     = "PKCE_SESSION_TTL"
	EnvStoreTTL       = "PKCE_STORE_TTL"
	EnvStrictStatus   = "PKCE_STRICT_STATUS"
	EnvLogLevel       = "PKCE_LOG_LEVEL"
	EnvLogJSON        = "PKCE_LOG_JSON"
)

const (
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultStorePath  = "pkce-store.json"
	DefaultLogLevel   = "info"
)

// Config is the callbackd configuration.
type Config struct {
	// AuthEndpoint is the token endpoint codes are exchanged with.
	AuthEndpoint string `yaml:"auth_endpoint"`

	// DashboardURL is where the browser goes after a successful callback.
	DashboardURL string `yaml:"dashboard_url"`

	ListenAddr     string        `yaml:"listen_addr"`
	RedirectDelay  time.Duration `yaml:"redirect_delay"`
	VerifierLength int           `yaml:"verifier_length"`

	// ProviderCA is an optional PEM file with the CA certs used to verify
	// the token endpoint.
	ProviderCA string `yaml:"provider_ca"`

	// StorePath is the json file backing the persistent tier.
	StorePath string `yaml:"store_path"`

	// StoreTTL is how long an untouched persistent entry is kept.  Zero keeps
	// entries forever.
	StoreTTL time.Duration `yaml:"store_ttl"`

	SessionCookie string `yaml:"session_cookie"`

	// SessionTTL is the idle time after which a session is dropped.  Zero
	// keeps sessions until they are evicted for room.
	SessionTTL time.Duration `yaml:"session_ttl"`

	StrictStatus bool   `yaml:"strict_status"`
	LogLevel     string `yaml:"log_level"`
	LogJSON      bool   `yaml:"log_json"`
}

// Default returns a Config with every optional field set.
func Default() *Config {
	return &Config{
		ListenAddr:     DefaultListenAddr,
		RedirectDelay:  3 * time.Second,
		VerifierLength: pkce.DefaultVerifierLength,
		StorePath:      DefaultStorePath,
		StoreTTL:       storage.DefaultFileTTL,
		SessionTTL:     storage.DefaultSessionTTL,
		LogLevel:       DefaultLogLevel,
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty), the .env file (when one is given and exists) and finally
// the process environment.  The result is validated.
//
// Supported options: WithEnvFile, WithLookupEnv
func Load(path string, opt ...Option) (*Config, error) {
	const op = "config.Load"
	opts := getConfigOpts(opt...)
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to read %q: %w", op, path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: unable to parse %q: %w", op, path, err)
		}
	}

	dotenv := map[string]string{}
	if opts.withEnvFile != "" {
		m, err := godotenv.Read(opts.withEnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("%s: unable to read %q: %w", op, opts.withEnvFile, err)
		}
	}
	lookup := func(k string) (string, bool) {
		if v, ok := opts.withLookupEnv(k); ok {
			return v, true
		}
		v, ok := dotenv[k]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var retErr *multierror.Error
	str := map[string]*string{
		EnvAuthEndpoint:  &c.AuthEndpoint,
		EnvDashboardURL:  &c.DashboardURL,
		EnvListenAddr:    &c.ListenAddr,
		EnvProviderCA:    &c.ProviderCA,
		EnvStorePath:     &c.StorePath,
		EnvSessionCookie: &c.SessionCookie,
		EnvLogLevel:      &c.LogLevel,
	}
	for k, p := range str {
		if v, ok := lookup(k); ok {
			*p = v
		}
	}
	durations := map[string]*time.Duration{
		EnvRedirectDelay: &c.RedirectDelay,
		EnvStoreTTL:      &c.StoreTTL,
		EnvSessionTTL:    &c.SessionTTL,
	}
	for k, p := range durations {
		v, ok := lookup(k)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: %q is not a duration: %w", k, v, ErrInvalidParameter))
			continue
		}
		*p = d
	}
	if v, ok := lookup(EnvVerifierLength); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: %q is not an integer: %w", EnvVerifierLength, v, ErrInvalidParameter))
		} else {
			c.VerifierLength = n
		}
	}
	bools := map[string]*bool{
		EnvStrictStatus: &c.StrictStatus,
		EnvLogJSON:      &c.LogJSON,
	}
	for k, p := range bools {
		v, ok := lookup(k)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			retErr = multierror.Append(retErr, fmt.Errorf("%s: %q is not a bool: %w", k, v, ErrInvalidParameter))
			continue
		}
		*p = b
	}
	return retErr.ErrorOrNil()
}

// Validate reports every problem with the Config at once.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	var retErr *multierror.Error
	fail := func(format string, args ...interface{}) {
		retErr = multierror.Append(retErr, fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrInvalidConfig))
	}

	switch u, err := url.Parse(c.AuthEndpoint); {
	case c.AuthEndpoint == "":
		fail("missing auth endpoint")
	case err != nil:
		fail("auth endpoint %q is not a url", c.AuthEndpoint)
	case !strutils.StrListContains([]string{"http", "https"}, u.Scheme) || u.Host == "":
		fail("auth endpoint %q must be an absolute http or https url", c.AuthEndpoint)
	}
	if c.DashboardURL == "" {
		fail("missing dashboard url")
	} else if _, err := url.Parse(c.DashboardURL); err != nil {
		fail("dashboard url %q is not a url", c.DashboardURL)
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		fail("listen addr %q is not host:port", c.ListenAddr)
	}
	if c.RedirectDelay < 0 {
		fail("negative redirect delay %s", c.RedirectDelay)
	}
	if c.VerifierLength < pkce.MinVerifierLength || c.VerifierLength > pkce.MaxVerifierLength {
		fail("verifier length %d is outside [%d, %d]", c.VerifierLength, pkce.MinVerifierLength, pkce.MaxVerifierLength)
	}
	if c.StorePath == "" {
		fail("missing store path")
	}
	if c.StoreTTL < 0 {
		fail("negative store ttl %s", c.StoreTTL)
	}
	if c.SessionTTL < 0 {
		fail("negative session ttl %s", c.SessionTTL)
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		fail("unknown log level %q", c.LogLevel)
	}
	return retErr.ErrorOrNil()
}

// ProviderCAPEM returns the contents of the ProviderCA file, or "" when none
// is configured.
func (c *Config) ProviderCAPEM() (string, error) {
	const op = "Config.ProviderCAPEM"
	if c.ProviderCA == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.ProviderCA)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(b), nil
}

// Logger returns the root logger described by the Config, writing to w.
func (c *Config) Logger(name string, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.LogJSON,
		Output:     w,
	})
}
