// Package file is the default kvcache backend: a single preferences document
// per application, stored under the user's config directory.
//
// The whole document is kept in memory. Every mutation takes an exclusive
// file lock, re-reads the document, applies the change and atomically replaces
// the file, so two processes writing different keys do not lose each other's
// writes. Reads are served from memory and do not observe other processes
// until the next local mutation reloads the document.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/kvcache/backend"
)

const (
	docVersion     = 1
	lockRetryDelay = 10 * time.Millisecond
	defaultFile    = "prefs.kv"
)

var ErrClosed = errors.New("file: provider closed")

type document struct {
	Version int               `msgpack:"v"`
	Values  map[string][]byte `msgpack:"values"`
}

// Provider is safe for concurrent use.
type Provider struct {
	path string
	lock *flock.Flock

	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ backend.Provider = (*Provider)(nil)

// DefaultPath returns <user config dir>/<name>/prefs.kv.
func DefaultPath(name string) (string, error) {
	if name == "" {
		return "", errors.New("file: name is required")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("file: locate config dir: %w", err)
	}
	return filepath.Join(dir, name, defaultFile), nil
}

// Open loads (or creates the directory for) the document at path.
func Open(ctx context.Context, path string) (*Provider, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file: create directory: %w", err)
	}
	p := &Provider{
		path: path,
		lock: flock.New(path + ".lock"),
	}
	if _, err := p.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("file: lock %s: %w", path, err)
	}
	data, err := load(path)
	_ = p.lock.Unlock()
	if err != nil {
		return nil, err
	}
	p.data = data
	return p, nil
}

// OpenBackend opens path and wraps it as a typed backend.
func OpenBackend(ctx context.Context, path string) (*backend.Typed, error) {
	p, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return backend.FromProvider(p), nil
}

// Path returns the document location.
func (p *Provider) Path() string { return p.path }

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, false, ErrClosed
	}
	v, ok := p.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte) (bool, error) {
	cp := append([]byte(nil), value...)
	err := p.mutate(ctx, func(m map[string][]byte) bool {
		m[key] = cp
		return true
	})
	return err == nil, err
}

func (p *Provider) Del(ctx context.Context, key string) error {
	return p.mutate(ctx, func(m map[string][]byte) bool {
		if _, ok := m[key]; !ok {
			return false
		}
		delete(m, key)
		return true
	})
}

// Clear removes every key from the document.
func (p *Provider) Clear(ctx context.Context) error {
	return p.mutate(ctx, func(m map[string][]byte) bool {
		clear(m)
		return true
	})
}

func (p *Provider) Close(context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.data = nil
	p.mu.Unlock()
	return nil
}

// mutate applies fn to a freshly loaded document under both locks; the file
// is rewritten only when fn reports a change.
func (p *Provider) mutate(ctx context.Context, fn func(map[string][]byte) bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	if _, err := p.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("file: lock %s: %w", p.path, err)
	}
	defer p.lock.Unlock()

	fresh, err := load(p.path)
	if err != nil {
		return err
	}
	if !fn(fresh) {
		p.data = fresh
		return nil
	}
	if err := store(p.path, fresh); err != nil {
		return err
	}
	p.data = fresh
	return nil
}

func load(path string) (map[string][]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(raw) == 0) {
		return make(map[string][]byte), nil
	}
	if err != nil {
		return nil, fmt.Errorf("file: read %s: %w", path, err)
	}
	var doc document
	if err := msgpack.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("file: decode %s: %w", path, err)
	}
	if doc.Version != docVersion {
		return nil, fmt.Errorf("file: %s has unsupported version %d", path, doc.Version)
	}
	if doc.Values == nil {
		doc.Values = make(map[string][]byte)
	}
	return doc.Values, nil
}

// store writes to a temp file first and renames it over path, so readers
// never see a partial document.
func store(path string, values map[string][]byte) error {
	raw, err := msgpack.Marshal(document{Version: docVersion, Values: values})
	if err != nil {
		return fmt.Errorf("file: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("file: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("file: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("file: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("file: rename: %w", err)
	}
	return nil
}
