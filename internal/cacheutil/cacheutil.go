// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apex/log"

	"github.com/staranto/apiqgo/internal/resource"
)

// Entry represents a cached body on disk.
// Key is the clear-text key; EncodedKey is the hashed filename.
type Entry struct {
	Key        resource.Key
	EncodedKey string
	Path       string
	Data       []byte
	ModTime    time.Time
	Size       int64
}

// envelope is the on-disk form. The segments are kept so entries can be
// listed by key.
type envelope struct {
	Segments []string        `json:"segments"`
	Body     json.RawMessage `json:"body"`
}

// Dir resolves the base cache directory.
// Precedence:
//  1. APIQ_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/apiq
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("APIQ_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "apiq"), true
	}
	return "", false
}

// Enabled returns true unless APIQ_CACHE explicitly disables it ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("APIQ_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// Store keeps bodies beneath a namespace directory, typically the host of the
// resource root, so two roots never share entries.
type Store struct {
	subdirs []string
}

// NewStore returns a Store rooted at Dir()/subdirs...
func NewStore(subdirs ...string) *Store {
	return &Store{subdirs: subdirs}
}

// EntryPath returns the absolute path where a cache entry would live. It also
// returns true if a file currently exists at that path.
func (s *Store) EntryPath(key resource.Key) (string, bool) {
	base, ok := Dir()
	if !ok {
		return "", false
	}
	p := filepath.Join(append([]string{base}, append(s.subdirs, encodeKey(key))...)...)
	if _, err := os.Stat(p); err == nil {
		return p, true
	}
	return p, false
}

// Read attempts to read a cached entry. It satisfies query.Store.
func (s *Store) Read(key resource.Key) ([]byte, time.Time, bool) {
	e, ok := s.Entry(key)
	if !ok {
		return nil, time.Time{}, false
	}
	return e.Data, e.ModTime, true
}

// Entry reads the full entry for key.
func (s *Store) Entry(key resource.Key) (*Entry, bool) {
	if !Enabled() {
		return nil, false
	}
	p, ok := s.EntryPath(key)
	if !ok {
		return nil, false
	}
	return readEntry(p)
}

// Write stores data for key. Creates directories as needed.
func (s *Store) Write(key resource.Key, data []byte) error {
	if !Enabled() {
		return nil // treat as disabled.
	}
	base, ok := Dir()
	if !ok {
		return nil // treat as disabled.
	}

	dir := filepath.Join(append([]string{base}, s.subdirs...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	b, err := json.Marshal(envelope{Segments: key.Segments(), Body: data})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	p := filepath.Join(dir, encodeKey(key))
	if err := os.WriteFile(p, b, os.FileMode(0o600)); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}

// Remove deletes the entry for key. A missing entry is not an error.
func (s *Store) Remove(key resource.Key) error {
	p, ok := s.EntryPath(key)
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	log.Debugf("removed cache file %s", p)
	return nil
}

// List returns every readable entry in the store, newest first.
func (s *Store) List() ([]*Entry, error) {
	base, ok := Dir()
	if !ok || !Enabled() {
		return nil, nil
	}
	dir := filepath.Join(append([]string{base}, s.subdirs...)...)

	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	var entries []*Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if e, ok := readEntry(filepath.Join(dir, f.Name())); ok {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Namespaces lists the store subdirectories present under the base
// directory.
func Namespaces() ([]string, error) {
	base, ok := Dir()
	if !ok || !Enabled() {
		return nil, nil
	}

	files, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}

	var out []string
	for _, f := range files {
		if f.IsDir() {
			out = append(out, f.Name())
		}
	}
	return out, nil
}

// Purge removes files older than maxAge anywhere under the base directory.
// If maxAge <= 0 or the cache dir cannot be resolved, it is a no-op.
func Purge(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		log.Debug("cache cleaning disabled")
		return 0, nil
	}
	base, ok := Dir()
	if !ok {
		return 0, nil
	}

	removed := 0
	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err == nil {
				removed++
				log.Debugf("removed cache file %s", path)
			} else {
				log.WithError(err).Warnf("failed to remove cache file %s", path)
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to purge cache: %w", err)
	}
	return removed, nil
}

func readEntry(p string) (*Entry, bool) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		log.WithError(err).Debugf("ignoring unreadable cache file %s", p)
		return nil, false
	}
	key, err := resource.New(env.Segments...)
	if err != nil {
		return nil, false
	}

	return &Entry{
		Key:        key,
		EncodedKey: filepath.Base(p),
		Path:       p,
		Data:       []byte(env.Body),
		ModTime:    info.ModTime(),
		Size:       info.Size(),
	}, true
}

// encodeKey hashes the key's identity with MD5 and returns the hex string.
func encodeKey(key resource.Key) string {
	h := md5.New()
	_, _ = h.Write([]byte(key.ID()))
	return hex.EncodeToString(h.Sum(nil))
}
