// Package prefs stores per-project operator preferences that should
// survive registry rebuilds, backed by bbolt.
package prefs

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketProjects = "projects" // key: folder path -> Project JSON

// Project holds the operator's wishes for one folder.
type Project struct {
	Path       string     `json:"path"`
	Disabled   bool       `json:"disabled"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Store is a bbolt-backed preference store.
type Store struct {
	storage *bbolt.DB
}

// Open opens or creates the preference database at path.
func Open(path string) (*Store, error) {
	instance, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	if err := instance.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketProjects))

		return err
	}); err != nil {
		_ = instance.Close()

		return nil, err
	}

	return &Store{storage: instance}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.storage.Close()
}

// Disable marks the folder at path as excluded from automatic backups.
func (s *Store) Disable(path, reason string) error {
	now := time.Now()
	p := Project{
		Path:       path,
		Disabled:   true,
		DisabledAt: &now,
		Reason:     reason,
	}

	data, err := json.Marshal(&p)
	if err != nil {
		return err
	}

	return s.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketProjects))

		return bucket.Put([]byte(path), data)
	})
}

// Enable re-includes the folder at path in automatic backups.
func (s *Store) Enable(path string) error {
	return s.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketProjects))

		return bucket.Delete([]byte(path))
	})
}

// IsDisabled reports whether automatic backups are off for path.
func (s *Store) IsDisabled(path string) (bool, error) {
	var disabled bool

	err := s.storage.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketProjects))
		v := bucket.Get([]byte(path))

		if v == nil {
			return nil
		}

		var p Project
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}

		disabled = p.Disabled

		return nil
	})

	return disabled, err
}

// ListDisabled returns every folder currently excluded from automatic
// backups.
func (s *Store) ListDisabled() ([]Project, error) {
	var out []Project

	err := s.storage.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketProjects))

		return bucket.ForEach(func(k, v []byte) error {
			var p Project

			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}

			if p.Disabled {
				out = append(out, p)
			}

			return nil
		})
	})

	return out, err
}

// Forget removes any stored preference for path.
func (s *Store) Forget(path string) error {
	return s.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketProjects))

		return bucket.Delete([]byte(path))
	})
}
