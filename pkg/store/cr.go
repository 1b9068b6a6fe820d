package store

import (
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/fastn-stack/fastn-sub010/pkg/cr"
	. "github.com/fastn-stack/fastn-sub010/pkg/store/storedefs"
)

func init() {
	initDB["initialize CR table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCR))
		return err
	}
}

// CreateCR allocates the next CR number and writes the about document of
// the new CR.
func (s *dbStore) CreateCR(title, description string) (int, error) {
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCR))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		n = int(seq)
		if err := b.Put(marshalSeq(seq), []byte(title)); err != nil {
			return err
		}
		about := cr.About{Number: n, Title: title, Description: description, Open: true}
		_, err = write(tx, cr.AboutPath(n), []byte(cr.FormatAbout(about)))
		return err
	})
	if err == nil {
		logger.Printf("created CR %d: %s", n, title)
	}
	return n, err
}

// CRs returns the numbers of all CRs ever created.
func (s *dbStore) CRs() ([]int, error) {
	var ns []int
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketCR)).ForEach(func(k, _ []byte) error {
			ns = append(ns, int(unmarshalSeq(k)))
			return nil
		})
	})
	return ns, err
}

// CRAbout returns the content of the about document of CR n.
func (s *dbStore) CRAbout(n int) (cr.About, error) {
	content, _, err := s.Latest(cr.AboutPath(n))
	if errors.Is(err, ErrNotFound) {
		return cr.About{}, fmt.Errorf("%w: CR %d", cr.ErrCRAboutNotFound, n)
	} else if err != nil {
		return cr.About{}, err
	}
	return cr.ParseAbout(n, string(content))
}

// EditInCR writes the CR n copy of a file. When the file is copied for the
// first time and exists in main, the main version is recorded in the track
// file of the copy.
func (s *dbStore) EditInCR(n int, file string, content []byte) error {
	file = cr.Clean(file)
	path := cr.FilePath(n, file)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := checkOpen(tx, n); err != nil {
			return err
		}
		if _, copied := entry(tx, path); !copied {
			if e, ok := entry(tx, file); ok && !e.Deleted {
				track := cr.FormatTrack([]cr.Entry{{File: file, Version: e.Version}})
				if _, err := write(tx, cr.TrackPath(path), []byte(track)); err != nil {
					return err
				}
			}
		}
		_, err := write(tx, path, content)
		return err
	})
}

// DeleteInCR records in the deleted-files index of CR n that the CR deletes
// a file of main, together with the version of the file the CR saw last.
func (s *dbStore) DeleteInCR(n int, file string) error {
	file = cr.Clean(file)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := checkOpen(tx, n); err != nil {
			return err
		}
		e, ok := entry(tx, file)
		if !ok || e.Deleted {
			return fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		entries, err := deleted(tx, n)
		if err != nil {
			return err
		}
		entries = cr.Put(entries, cr.Entry{File: file, Version: e.Version})
		_, err = write(tx, cr.DeletedPath(n), []byte(cr.FormatDeleted(entries)))
		return err
	})
}

// Tracking returns the entries of the track file of the CR n copy of a
// file. A copy of a file that did not exist in main has no track file.
func (s *dbStore) Tracking(n int, file string) ([]cr.Entry, error) {
	path := cr.TrackPath(cr.FilePath(n, file))
	content, _, err := s.Latest(path)
	if err != nil {
		return nil, err
	}
	return cr.ParseTrack(path, string(content))
}

// Deleted returns the deleted-files index of CR n.
func (s *dbStore) Deleted(n int) ([]cr.Entry, error) {
	var entries []cr.Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		entries, err = deleted(tx, n)
		return err
	})
	return entries, err
}

func deleted(tx *bolt.Tx, n int) ([]cr.Entry, error) {
	content, _, err := latest(tx, cr.DeletedPath(n))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return cr.ParseDeleted(n, string(content))
}

// Only open CRs can be edited.
func checkOpen(tx *bolt.Tx, n int) error {
	content, _, err := latest(tx, cr.AboutPath(n))
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: CR %d", cr.ErrCRAboutNotFound, n)
	} else if err != nil {
		return err
	}
	about, err := cr.ParseAbout(n, string(content))
	if err != nil {
		return err
	}
	if !about.Open {
		return fmt.Errorf("CR %d is closed", n)
	}
	return nil
}
