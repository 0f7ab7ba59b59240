// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowsers_Bind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t.Run("new-browser", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		base := NewMemory()
		b := NewBrowsers("")
		assert.Equal(DefaultBrowserCookie, b.CookieName())

		rec := httptest.NewRecorder()
		st, err := b.Bind(rec, httptest.NewRequest(http.MethodGet, "/callback", nil), base)
		require.NoError(err)
		require.NoError(st.Set(ctx, "code_verifier", "v1"))

		cookies := rec.Result().Cookies()
		require.Len(cookies, 1)
		c := cookies[0]
		assert.Equal(DefaultBrowserCookie, c.Name)
		assert.True(strings.HasPrefix(c.Value, "br_"))
		assert.Equal(BrowserCookieMaxAge, c.MaxAge)
		assert.True(c.HttpOnly)
		assert.True(c.Secure)

		got, ok, err := base.Get(ctx, c.Value+"/code_verifier")
		require.NoError(err)
		assert.True(ok)
		assert.Equal("v1", got)
	})
	t.Run("browsers-kept-apart", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		base := NewMemory()
		b := NewBrowsers("")

		recA := httptest.NewRecorder()
		a, err := b.Bind(recA, httptest.NewRequest(http.MethodGet, "/", nil), base)
		require.NoError(err)
		recB := httptest.NewRecorder()
		bb, err := b.Bind(recB, httptest.NewRequest(http.MethodGet, "/", nil), base)
		require.NoError(err)
		require.NoError(a.Set(ctx, "code_verifier", "va"))
		require.NoError(bb.Set(ctx, "code_verifier", "vb"))
		assert.Equal(2, base.Len())

		// browser A comes back with its cookie
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(recA.Result().Cookies()[0])
		rec := httptest.NewRecorder()
		again, err := b.Bind(rec, req, base)
		require.NoError(err)
		assert.Empty(rec.Result().Cookies())
		got, ok, err := again.Get(ctx, "code_verifier")
		require.NoError(err)
		assert.True(ok)
		assert.Equal("va", got)
	})
	t.Run("malformed-cookie-replaced", func(t *testing.T) {
		for _, v := range []string{"br_short", "br_../../etc", "sess_" + strings.Repeat("a", 32), "br_" + strings.Repeat("a", 31) + "/"} {
			assert, require := assert.New(t), require.New(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: DefaultBrowserCookie, Value: v})
			rec := httptest.NewRecorder()
			_, err := NewBrowsers("").Bind(rec, req, NewMemory())
			require.NoError(err)
			cookies := rec.Result().Cookies()
			require.Len(cookies, 1, v)
			assert.NotEqual(v, cookies[0].Value)
		}
	})
	t.Run("nil-params", func(t *testing.T) {
		assert := assert.New(t)
		_, err := NewBrowsers("").Bind(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
		assert.True(errors.Is(err, ErrNilParameter))
		_, err = NewBrowsers("").Bind(nil, nil, NewMemory())
		assert.True(errors.Is(err, ErrNilParameter))
	})
}

func TestNewNamespace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name      string
		base      Storage
		ns        string
		wantErr   bool
		wantIsErr error
	}{
		{name: "valid", base: NewMemory(), ns: "br_1"},
		{name: "nil-base", ns: "br_1", wantErr: true, wantIsErr: ErrNilParameter},
		{name: "empty-name", base: NewMemory(), wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "slash", base: NewMemory(), ns: "a/b", wantErr: true, wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewNamespace(tt.base, tt.ns)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			require.NoError(got.Set(ctx, "k", "v"))
			v, ok, err := tt.base.Get(ctx, tt.ns+"/k")
			require.NoError(err)
			assert.True(ok)
			assert.Equal("v", v)
			assert.True(errors.Is(got.Set(ctx, "", "v"), ErrInvalidParameter))
		})
	}
}
