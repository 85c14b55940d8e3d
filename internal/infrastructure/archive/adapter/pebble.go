package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"go-parley/internal/infrastructure/archive/port"
)

const keyPrefix = "discussion/"

// PebbleStore satisfies port.Store on an embedded pebble database. Records
// are stored as JSON under "discussion/<id>" keys.
type PebbleStore struct {
	db *pebble.DB
}

// Open opens (or creates) the archive database at dir.
func Open(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

// Ensure interface compliance at compile time
var _ port.Store = (*PebbleStore)(nil)

func (s *PebbleStore) Save(ctx context.Context, rec port.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.DiscussionID == "" {
		return errors.New("archive: discussion id is required")
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: marshal: %w", err)
	}
	if err := s.db.Set([]byte(keyPrefix+rec.DiscussionID), val, pebble.Sync); err != nil {
		return fmt.Errorf("archive: set: %w", err)
	}
	return nil
}

func (s *PebbleStore) Get(ctx context.Context, discussionID string) (port.Record, error) {
	if err := ctx.Err(); err != nil {
		return port.Record{}, err
	}
	val, closer, err := s.db.Get([]byte(keyPrefix + discussionID))
	if errors.Is(err, pebble.ErrNotFound) {
		return port.Record{}, port.ErrNotFound
	}
	if err != nil {
		return port.Record{}, fmt.Errorf("archive: get: %w", err)
	}
	defer closer.Close()

	var rec port.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return port.Record{}, fmt.Errorf("archive: unmarshal: %w", err)
	}
	return rec, nil
}

func (s *PebbleStore) List(ctx context.Context) ([]port.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: iterator: %w", err)
	}
	defer iter.Close()

	var out []port.Record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec port.Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("archive: unmarshal %s: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("archive: iterate: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	return out, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
