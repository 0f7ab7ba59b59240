// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name      string
		setup     func(t *testing.T) string
		wantErr   bool
		wantIsErr error
		wantKey   string
		wantValue string
	}{
		{
			name:  "missing-file",
			setup: func(t *testing.T) string { return filepath.Join(t.TempDir(), "store.json") },
		},
		{
			name: "existing-file",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "store.json")
				doc := fmt.Sprintf(`{"code_verifier":{"value":"v1","updated":%q}}`, time.Now().UTC().Format(time.RFC3339Nano))
				require.NoError(t, os.WriteFile(p, []byte(doc), 0o600))
				return p
			},
			wantKey:   "code_verifier",
			wantValue: "v1",
		},
		{
			name: "empty-file",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "store.json")
				require.NoError(t, os.WriteFile(p, nil, 0o600))
				return p
			},
		},
		{
			name: "corrupt-file",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "store.json")
				require.NoError(t, os.WriteFile(p, []byte(`{not json`), 0o600))
				return p
			},
			wantErr: true,
		},
		{
			name: "expired-entry",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "store.json")
				require.NoError(t, os.WriteFile(p, []byte(`{"code_verifier":{"value":"v1","updated":"2000-01-01T00:00:00Z"}}`), 0o600))
				return p
			},
			wantKey: "code_verifier",
		},
		{
			name: "legacy-format",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "store.json")
				require.NoError(t, os.WriteFile(p, []byte(`{"code_verifier":"v1"}`), 0o600))
				return p
			},
			wantErr: true,
		},
		{
			name:      "empty-path",
			setup:     func(t *testing.T) string { return "" },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			f, err := NewFile(tt.setup(t))
			if tt.wantErr {
				require.Error(err)
				if tt.wantIsErr != nil {
					assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				}
				return
			}
			require.NoError(err)
			if tt.wantKey != "" {
				got, ok, err := f.Get(ctx, tt.wantKey)
				require.NoError(err)
				assert.Equal(tt.wantValue != "", ok)
				assert.Equal(tt.wantValue, got)
			}
		})
	}
}

func TestFile_Set(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t.Run("persists", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := filepath.Join(t.TempDir(), "nested", "store.json")
		f, err := NewFile(p)
		require.NoError(err)
		require.NoError(f.Set(ctx, "code_verifier", "v1"))
		require.NoError(f.Set(ctx, "code_challenge", "c1"))

		info, err := os.Stat(p)
		require.NoError(err)
		assert.Equal(os.FileMode(0o600), info.Mode().Perm())

		reopened, err := NewFile(p)
		require.NoError(err)
		got, ok, err := reopened.Get(ctx, "code_challenge")
		require.NoError(err)
		assert.True(ok)
		assert.Equal("c1", got)

		matches, err := filepath.Glob(filepath.Join(filepath.Dir(p), "*.tmp"))
		require.NoError(err)
		assert.Empty(matches)
	})
	t.Run("empty-key", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		f, err := NewFile(filepath.Join(t.TempDir(), "store.json"))
		require.NoError(err)
		assert.True(errors.Is(f.Set(ctx, "", "v"), ErrInvalidParameter))
	})
	t.Run("write-failure-keeps-previous", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		blocker := filepath.Join(t.TempDir(), "blocker")
		f, err := NewFile(filepath.Join(blocker, "store.json"))
		require.NoError(err)
		// a regular file where the parent directory should be
		require.NoError(os.WriteFile(blocker, []byte("x"), 0o600))
		require.Error(f.Set(ctx, "code_verifier", "v1"))
		_, ok, err := f.Get(ctx, "code_verifier")
		require.NoError(err)
		assert.False(ok)
	})
}

func TestFile_expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t.Run("ttl", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		fc := clockwork.NewFakeClock()
		p := filepath.Join(t.TempDir(), "store.json")
		f, err := NewFile(p, WithClock(fc), WithTTL(time.Hour))
		require.NoError(err)
		require.NoError(f.Set(ctx, "a/code_verifier", "v1"))

		fc.Advance(59 * time.Minute)
		got, ok, err := f.Get(ctx, "a/code_verifier")
		require.NoError(err)
		assert.True(ok)
		assert.Equal("v1", got)
		require.NoError(f.Set(ctx, "b/code_verifier", "v2"))

		fc.Advance(time.Minute)
		_, ok, err = f.Get(ctx, "a/code_verifier")
		require.NoError(err)
		assert.False(ok)
		assert.Equal(1, f.Len())

		// the next write drops the expired entry from disk too
		require.NoError(f.Set(ctx, "b/code_challenge", "c2"))
		raw, err := os.ReadFile(p)
		require.NoError(err)
		assert.NotContains(string(raw), "a/code_verifier")
		assert.Contains(string(raw), "b/code_verifier")
	})
	t.Run("max-entries", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		fc := clockwork.NewFakeClock()
		f, err := NewFile(filepath.Join(t.TempDir(), "store.json"), WithClock(fc), WithMaxEntries(2))
		require.NoError(err)
		require.NoError(f.Set(ctx, "k1", "v1"))
		fc.Advance(time.Second)
		require.NoError(f.Set(ctx, "k2", "v2"))
		fc.Advance(time.Second)
		// rewriting an existing key never evicts
		require.NoError(f.Set(ctx, "k1", "v1b"))
		assert.Equal(2, f.Len())
		fc.Advance(time.Second)
		require.NoError(f.Set(ctx, "k3", "v3"))
		assert.Equal(2, f.Len())

		_, ok, err := f.Get(ctx, "k2")
		require.NoError(err)
		assert.False(ok)
		got, ok, err := f.Get(ctx, "k1")
		require.NoError(err)
		assert.True(ok)
		assert.Equal("v1b", got)
	})
	t.Run("no-ttl", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		fc := clockwork.NewFakeClock()
		f, err := NewFile(filepath.Join(t.TempDir(), "store.json"), WithClock(fc), WithTTL(0))
		require.NoError(err)
		require.NoError(f.Set(ctx, "k", "v"))
		fc.Advance(10 * 365 * 24 * time.Hour)
		_, ok, err := f.Get(ctx, "k")
		require.NoError(err)
		assert.True(ok)
	})
}
