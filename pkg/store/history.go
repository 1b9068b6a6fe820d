package store

import (
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	. "github.com/fastn-stack/fastn-sub010/pkg/store/storedefs"
)

func init() {
	initDB["initialize file history table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketHistory))
		return err
	}
	initDB["initialize manifest table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketManifest))
		return err
	}
}

// A history key is the path, a NUL byte and the big-endian version, so
// that the versions of one file are adjacent and ordered.
func historyKey(path string, version int) []byte {
	return append([]byte(path+"\x00"), marshalSeq(uint64(version))...)
}

// A manifest value is the big-endian version followed by a byte that is 1
// for deleted files.
func marshalEdit(e cr.FileEdit) []byte {
	b := marshalSeq(uint64(e.Version))
	if e.Deleted {
		return append(b, 1)
	}
	return append(b, 0)
}

func unmarshalEdit(v []byte) cr.FileEdit {
	return cr.FileEdit{Version: int(unmarshalSeq(v[:8])), Deleted: len(v) > 8 && v[8] == 1}
}

func entry(tx *bolt.Tx, path string) (cr.FileEdit, bool) {
	v := tx.Bucket([]byte(bucketManifest)).Get([]byte(path))
	if v == nil {
		return cr.FileEdit{}, false
	}
	return unmarshalEdit(v), true
}

func write(tx *bolt.Tx, path string, content []byte) (int, error) {
	path = cr.Clean(path)
	e, _ := entry(tx, path)
	version := e.Version + 1
	if err := tx.Bucket([]byte(bucketHistory)).Put(historyKey(path, version), content); err != nil {
		return 0, err
	}
	return version, tx.Bucket([]byte(bucketManifest)).Put(
		[]byte(path), marshalEdit(cr.FileEdit{Version: version}))
}

func del(tx *bolt.Tx, path string) (int, error) {
	path = cr.Clean(path)
	e, ok := entry(tx, path)
	if !ok || e.Deleted {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	e = cr.FileEdit{Version: e.Version + 1, Deleted: true}
	return e.Version, tx.Bucket([]byte(bucketManifest)).Put([]byte(path), marshalEdit(e))
}

func history(tx *bolt.Tx, path string, version int) ([]byte, error) {
	v := tx.Bucket([]byte(bucketHistory)).Get(historyKey(cr.Clean(path), version))
	if v == nil {
		return nil, fmt.Errorf("%w: %w: %s version %d", ErrNotFound, cr.ErrMissingHistory, path, version)
	}
	// Values are only valid during the transaction.
	return append([]byte(nil), v...), nil
}

func latest(tx *bolt.Tx, path string) ([]byte, int, error) {
	e, ok := entry(tx, cr.Clean(path))
	if !ok || e.Deleted {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	content, err := history(tx, path, e.Version)
	return content, e.Version, err
}

// Write adds a version of a file and returns its number.
func (s *dbStore) Write(path string, content []byte) (int, error) {
	var version int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		version, err = write(tx, path, content)
		return err
	})
	return version, err
}

// Delete marks a file as deleted. The deletion takes a version number of
// its own; earlier versions stay in the history.
func (s *dbStore) Delete(path string) (int, error) {
	var version int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		version, err = del(tx, path)
		return err
	})
	return version, err
}

// Latest returns the content and version of the latest version of a file.
func (s *dbStore) Latest(path string) ([]byte, int, error) {
	var (
		content []byte
		version int
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		content, version, err = latest(tx, path)
		return err
	})
	return content, version, err
}

// History returns the content of a version of a file.
func (s *dbStore) History(path string, version int) ([]byte, error) {
	var content []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		content, err = history(tx, path, version)
		return err
	})
	return content, err
}

// Manifest returns the latest state of every file ever written.
func (s *dbStore) Manifest() (cr.Manifest, error) {
	m := make(cr.Manifest)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketManifest)).ForEach(func(k, v []byte) error {
			m[string(k)] = unmarshalEdit(v)
			return nil
		})
	})
	return m, err
}

// Versions returns the version numbers kept for a file, in ascending order.
func (s *dbStore) Versions(path string) ([]int, error) {
	var versions []int
	prefix := []byte(cr.Clean(path) + "\x00")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketHistory)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			versions = append(versions, int(unmarshalSeq(k[len(prefix):])))
		}
		return nil
	})
	return versions, err
}

// Apply applies all changes of a plan in one transaction. A plan with
// conflicts is refused.
func (s *dbStore) Apply(plan *cr.Plan) error {
	if !plan.Clean() {
		return fmt.Errorf("plan has %d conflicts", len(plan.Conflicts))
	}
	changes := plan.Changes()
	logger.Printf("applying %d changes", len(changes))
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, c := range changes {
			var err error
			if c.Op == cr.Delete {
				_, err = del(tx, c.Path)
			} else {
				_, err = write(tx, c.Path, c.Content)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
		}
		return nil
	})
}
