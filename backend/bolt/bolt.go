// Package bolt is a persistent Provider backed by a single bbolt bucket.
package bolt

import (
	"context"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/kvcache/backend"
)

const defaultBucket = "kvcache"

type Options struct {
	// Bucket is the name of the Bolt bucket to use. Defaults to "kvcache".
	Bucket string
	// Timeout bounds how long Open waits for the file lock. Defaults to 1s.
	Timeout time.Duration
}

// Provider is safe for concurrent use; bbolt serializes writers itself.
type Provider struct {
	db     *bolt.DB
	bucket []byte
}

var _ backend.Provider = (*Provider)(nil)

// Open initializes or opens the database at path.
func Open(path string, opts Options) (*Provider, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte(defaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Provider{db: db, bucket: bucket}, nil
}

// OpenBackend opens path and wraps it as a typed backend.
func OpenBackend(path string, opts Options) (*backend.Typed, error) {
	p, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return backend.FromProvider(p), nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(p.bucket).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte) (bool, error) {
	if key == "" {
		return false, errors.New("bolt: empty key")
	}
	err := p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte(key), value)
	})
	return err == nil, err
}

func (p *Provider) Del(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Delete([]byte(key))
	})
}

// Close closes the underlying database.
func (p *Provider) Close(context.Context) error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
