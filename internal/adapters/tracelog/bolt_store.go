// Package tracelog keeps recharge diagnostic traces in an embedded BoltDB
// file, out of band from the Postgres transaction log.
package tracelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	"github.com/oklog/ulid/v2"
)

const bucketName = "recharge_traces"

// ErrNotFound is returned when a trace id is unknown
var ErrNotFound = errors.New("trace not found")

// Store is a ports.TraceSink backed by BoltDB. Keys are ULIDs, so a cursor
// walk returns traces in write order.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

var _ ports.TraceSink = (*Store)(nil)

// Open opens (or creates) the trace file at path
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the file lock
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteTrace stamps an id and creation time when missing and persists the record
func (s *Store) WriteTrace(ctx context.Context, record *domain.TraceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if record.ID == "" {
		record.ID = ulid.MustNew(ulid.Timestamp(record.CreatedAt), ulid.DefaultEntropy()).String()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(record.ID), data)
	})
}

// Get returns one trace by id
func (s *Store) Get(id string) (*domain.TraceRecord, error) {
	var record domain.TraceRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns up to limit traces, newest first. A non-positive limit returns all.
func (s *Store) List(limit int) ([]domain.TraceRecord, error) {
	items := []domain.TraceRecord{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(items) >= limit {
				break
			}
			var record domain.TraceRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			items = append(items, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListByAttempt returns every trace written for one attempt, oldest first
func (s *Store) ListByAttempt(attemptID string) ([]domain.TraceRecord, error) {
	items := []domain.TraceRecord{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var record domain.TraceRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			if record.AttemptID == attemptID {
				items = append(items, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Prune deletes traces created before cutoff and returns how many were removed
func (s *Store) Prune(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			id, err := ulid.ParseStrict(string(k))
			if err != nil {
				continue
			}
			if !ulid.Time(id.Time()).Before(cutoff) {
				break
			}
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
