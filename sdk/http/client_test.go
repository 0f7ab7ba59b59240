// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	t.Run("system-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient("")
		require.NoError(err)
		assert.NotNil(c.Transport)
		assert.NotNil(c.Jar)
	})
	t.Run("bad-pem", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewClient("not a pem")
		assert.True(errors.Is(err, ErrInvalidCertificatePem))
	})
	t.Run("custom-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()
		caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})

		c, err := NewClient(string(caPEM))
		require.NoError(err)
		resp, err := c.Get(srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNoContent, resp.StatusCode)
	})
	t.Run("cookies-round-trip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var seen string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("refresh_token"); err == nil {
				seen = c.Value
			}
			http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/"})
		}))
		defer srv.Close()

		c, err := NewClient("")
		require.NoError(err)
		for i := 0; i < 2; i++ {
			resp, err := c.Get(srv.URL)
			require.NoError(err)
			resp.Body.Close()
		}
		assert.Equal("r1", seen)
	})
}
