package restyle

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"go.etcd.io/bbolt"
)

// SessionRecord is the journal entry of one rewrite session. An interrupted
// run may leave an orphaned disposable worktree behind; the journal lets a
// later invocation find it.
type SessionRecord struct {
	ID               string    `yaml:"id"`
	Branch           string    `yaml:"branch"`
	OriginalTip      string    `yaml:"original_tip"`
	TargetBase       string    `yaml:"target_base"`
	WorktreePath     string    `yaml:"worktree_path"`
	WorktreeRetained bool      `yaml:"worktree_retained"`
	RewrittenHead    string    `yaml:"rewritten_head,omitempty"`
	Ok               bool      `yaml:"ok"`
	StartedAt        time.Time `yaml:"started_at"`
	FinishedAt       time.Time `yaml:"finished_at,omitempty"`
}

const sessionBucket = "sessions"

// Journal is a small bbolt database of [SessionRecord], kept under the
// repository's git directory.
type Journal struct {
	db *bbolt.DB
}

// JournalPath returns the journal location for a repository.
func JournalPath(repo *Repo) string {
	return filepath.Join(repo.GitDir, "restyle.db")
}

// OpenJournal opens (creating if needed) the journal at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", path, err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}

// getFromDb returns the typed record for id, or nil if absent.
func getFromDb[T any](db *bbolt.DB, bucket []byte, id []byte,
	unmarshal func(data []byte, v *T) error,
) (*T, error) {
	if db == nil {
		return nil, ErrNilJournal
	}

	r := (*T)(nil)

	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		v := b.Get(id)
		if v == nil {
			return nil
		}
		r = new(T)
		if err := unmarshal(v, r); err != nil {
			r = nil
			return err
		}

		return nil
	})

	return r, err
}

func putToDb[T any](db *bbolt.DB, bucket []byte, id []byte, v T, marshal func(v T) ([]byte, error)) error {
	if db == nil {
		return ErrNilJournal
	}

	return db.Update(
		func(tx *bbolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
			data, err := marshal(v)
			if err != nil {
				return err
			}
			return b.Put(id, data)
		})
}

// Put stores or replaces a record.
func (j *Journal) Put(record *SessionRecord) error {
	if j == nil {
		return ErrNilJournal
	}

	return putToDb(j.db, []byte(sessionBucket), []byte(record.ID), record,
		func(v *SessionRecord) ([]byte, error) {
			return yaml.Marshal(v)
		})
}

// Get loads a record by id, nil if absent.
func (j *Journal) Get(id string) (*SessionRecord, error) {
	if j == nil {
		return nil, ErrNilJournal
	}

	return getFromDb(j.db, []byte(sessionBucket), []byte(id),
		func(d []byte, v *SessionRecord) error {
			return yaml.Unmarshal(d, v)
		})
}

// List returns every record in key order.
func (j *Journal) List() ([]*SessionRecord, error) {
	if j == nil {
		return nil, ErrNilJournal
	}

	var result []*SessionRecord

	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(sessionBucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			r := new(SessionRecord)
			if err := yaml.Unmarshal(v, r); err != nil {
				return err
			}
			result = append(result, r)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// newSessionID is unique across concurrent runs: start time plus pid.
func newSessionID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102T150405.000000000"), os.Getpid())
}
