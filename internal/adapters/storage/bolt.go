// Package storage persists user preferences.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const DefaultPreferencesPath = "./data/preferences.db"

var PreferencesBucket = []byte("preferences")

var _ ports.PreferenceStore = (*BoltStore)(nil)

// BoltStore keeps preferences in a single bbolt bucket.
type BoltStore struct {
	db   *bolt.DB
	path string
}

func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		path = DefaultPreferencesPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout:    time.Second,
		NoGrowSync: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(PreferencesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Debug().Str("db_path", path).Msg("Preference store opened")

	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(PreferencesBucket)
		if b == nil {
			return ports.ErrPreferenceNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ports.ErrPreferenceNotFound
		}
		value = string(v)
		return nil
	})
	return value, err
}

func (s *BoltStore) Set(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(PreferencesBucket)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
