package store

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("accumulator_store")

// Bolt is a Store backed by a single bbolt database file and bucket: a
// fixed bucket name with Update/View transactions around every
// mutation and read.
type Bolt struct {
	db   *bbolt.DB
	path string
	log  Logger
}

// NewBolt opens (creating if necessary) a bbolt database at path with the
// accumulator bucket present.
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: opening bbolt database %q: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: creating bucket in %q: %w", path, err)
	}
	return &Bolt{db: db, path: path, log: NopLogger}, nil
}

// SetLogger installs a Logger for diagnosing batched operations.
func (b *Bolt) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger
	}
	b.log = l
}

// Close releases the underlying bbolt database handle.
func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) ID() string { return b.path }

func (b *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("store: bolt get %q: %w", key, err)
	}
	if value == nil {
		return "", false, nil
	}
	return string(value), true, nil
}

func (b *Bolt) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	b.log.Debugf("bolt %s: get_many %d keys", b.path, len(keys))
	out := make(map[string]string, len(keys))
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, k := range keys {
			if v := bucket.Get([]byte(k)); v != nil {
				out[k] = string(v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: bolt get_many: %w", err)
	}
	return out, nil
}

func (b *Bolt) Set(_ context.Context, key, value string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("store: bolt set %q: %w", key, err)
	}
	return nil
}

func (b *Bolt) SetMany(_ context.Context, entries map[string]string) error {
	b.log.Debugf("bolt %s: set_many %d entries", b.path, len(entries))
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for k, v := range entries {
			if err := bucket.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: bolt set_many: %w", err)
	}
	return nil
}

func (b *Bolt) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("store: bolt delete %q: %w", key, err)
	}
	return nil
}

func (b *Bolt) DeleteMany(_ context.Context, keys []string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: bolt delete_many: %w", err)
	}
	return nil
}

var _ Store = (*Bolt)(nil)
