package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	BucketRuns = "runs"

	// MaxItems is how many runs are kept; older ones are pruned on Save.
	MaxItems = 100
)

var ErrNotFound = errors.New("run not found")

type Store struct {
	db       *bbolt.DB
	filePath string
}

// DefaultPath is ~/.cdnbench/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, ".cdnbench", "history.db"), nil
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create history directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history %s", path)
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create history bucket")
	}

	return &Store{
		db:       db,
		filePath: path,
	}, nil
}

func (s *Store) Path() string {
	return s.filePath
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(item HistoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		data, err := json.Marshal(item)
		if err != nil {
			return errors.Wrap(err, "failed to marshal run")
		}

		if err := b.Put(item.key(), data); err != nil {
			return errors.Wrap(err, "failed to store run")
		}

		// Keep max MaxItems items
		c := b.Cursor()
		excess := -MaxItems
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			excess++
		}
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return errors.Wrap(err, "failed to prune history")
			}
			excess--
		}

		return nil
	})
}

// List returns stored runs, newest first. Entries that fail to decode are
// skipped.
func (s *Store) List() ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err == nil {
				items = append(items, item)
			}
		}
		return nil
	})

	return items, err
}

// Get looks a run up by ID or by a unique ID prefix.
func (s *Store) Get(id string) (*HistoryItem, error) {
	if id == "" {
		return nil, errors.Wrap(ErrNotFound, "empty id")
	}

	var found []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		return b.ForEach(func(k, v []byte) error {
			_, itemID, ok := bytes.Cut(k, []byte("-"))
			if !ok || !bytes.HasPrefix(itemID, []byte(id)) {
				return nil
			}
			if found != nil {
				return errors.Errorf("run id %q is ambiguous", id)
			}
			found = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.Wrap(ErrNotFound, id)
	}

	var item HistoryItem
	if err := json.Unmarshal(found, &item); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal run")
	}
	return &item, nil
}
