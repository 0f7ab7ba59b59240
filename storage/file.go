// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is a persistent Storage kept as one JSON object on disk.  Every Set
// rewrites the file, via a temp file and rename, so a crash never leaves a
// partially written document behind.
//
// An entry not written for the TTL is treated as absent and dropped on the
// next write, and when the file is full the least recently written entry
// makes room for a new key.
type File struct {
	path string
	opts expiryOptions

	mu sync.Mutex
	m  map[string]fileEntry
}

type fileEntry struct {
	Value   string    `json:"value"`
	Updated time.Time `json:"updated"`
}

// ensure that File implements the Storage interface
var _ Storage = (*File)(nil)

// NewFile opens the storage at path, loading existing values if the file
// exists.  The file is created on the first Set.
//
// Supported options: WithClock, WithTTL, WithMaxEntries
func NewFile(path string, opt ...Option) (*File, error) {
	const op = "storage.NewFile"
	if path == "" {
		return nil, fmt.Errorf("%s: missing path: %w", op, ErrInvalidParameter)
	}
	f := &File{
		path: path,
		opts: getExpiryOpts(fileDefaults(), opt...),
		m:    map[string]fileEntry{},
	}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("%s: unable to read %s: %w", op, path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.m); err != nil {
			return nil, fmt.Errorf("%s: unable to decode %s: %w", op, path, err)
		}
	}
	return f, nil
}

// Get implements Storage.Get
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.m[key]
	if !ok || f.expired(e, f.opts.withClock.Now()) {
		return "", false, nil
	}
	return e.Value, true, nil
}

// Set implements Storage.Set
func (f *File) Set(_ context.Context, key, value string) error {
	const op = "File.Set"
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := maps.Clone(f.m)
	now := f.opts.withClock.Now()
	for k, e := range f.m {
		if f.expired(e, now) {
			delete(f.m, k)
		}
	}
	if _, ok := f.m[key]; !ok {
		if limit := f.opts.withMaxEntries; limit > 0 && len(f.m) >= limit {
			f.dropOldestLocked()
		}
	}
	f.m[key] = fileEntry{Value: value, Updated: now}
	if err := f.flush(); err != nil {
		f.m = prev
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Len returns the number of live entries.
func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.opts.withClock.Now()
	n := 0
	for _, e := range f.m {
		if !f.expired(e, now) {
			n++
		}
	}
	return n
}

func (f *File) expired(e fileEntry, now time.Time) bool {
	return f.opts.withTTL > 0 && now.Sub(e.Updated) >= f.opts.withTTL
}

// dropOldestLocked drops the least recently written entry.  Callers must
// hold f.mu.
func (f *File) dropOldestLocked() {
	var oldest string
	var oldestAt time.Time
	first := true
	for k, e := range f.m {
		if first || e.Updated.Before(oldestAt) {
			oldest, oldestAt, first = k, e.Updated, false
		}
	}
	delete(f.m, oldest)
}

// flush writes the current values to disk.  Callers must hold f.mu.
func (f *File) flush() error {
	raw, err := json.MarshalIndent(f.m, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode values: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("unable to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("unable to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("unable to replace %s: %w", f.path, err)
	}
	return nil
}
