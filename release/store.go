package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrConflict is returned when a (type, version) pair already has a
// recorded release. Releases are immutable audit records; the store
// never overwrites.
var ErrConflict = errors.New("release already exists")

var releasesBucket = []byte("releases")

// Store persists release metadata: a bbolt index for conflict checks
// and lookups, plus one human-readable JSON record per release.
type Store struct {
	dir string
	db  *bolt.DB
}

// OpenStore opens (or creates) the metadata store in dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "releases.db"), 0640, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open release index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(releasesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create releases bucket: %w", err)
	}

	return &Store{dir: dir, db: db}, nil
}

// Close closes the underlying index.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether a release with this identifier is recorded.
func (s *Store) Exists(rt Type, version string) (bool, error) {
	key := []byte(fmt.Sprintf("%s/%s", rt, version))
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(releasesBucket).Get(key) != nil
		return nil
	})
	return found, err
}

// Record persists the metadata. The index write is transactional and
// acts as the commit marker: a crash before it leaves no record, and a
// duplicate key fails with ErrConflict inside the same transaction
// that would have written it.
func (s *Store) Record(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal release metadata: %w", err)
	}

	recordPath := filepath.Join(s.dir, meta.RecordFilename())
	if err := os.WriteFile(recordPath, data, 0640); err != nil {
		return fmt.Errorf("write release record: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(releasesBucket)
		key := []byte(meta.Key())
		if bucket.Get(key) != nil {
			return fmt.Errorf("%w: %s", ErrConflict, meta.Key())
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		// Roll the record file back so a failed commit leaves nothing
		// that could be mistaken for a completed release.
		_ = os.Remove(recordPath)
		return err
	}

	return nil
}

// Get loads the metadata for one release.
func (s *Store) Get(rt Type, version string) (*Metadata, error) {
	key := []byte(fmt.Sprintf("%s/%s", rt, version))
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(releasesBucket).Get(key)
		if v == nil {
			return fmt.Errorf("release %s/%s not found", rt, version)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal release metadata: %w", err)
	}
	return &meta, nil
}

// List returns all recorded releases, ordered by store key.
func (s *Store) List() ([]*Metadata, error) {
	var releases []*Metadata
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(releasesBucket).ForEach(func(k, v []byte) error {
			var meta Metadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("unmarshal release %s: %w", k, err)
			}
			releases = append(releases, &meta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return releases, nil
}
