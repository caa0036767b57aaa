// Package boltstore implements store.Store on bbolt. Chars live in one bucket
// keyed by ID; a per-level index bucket lists the IDs of each level in
// insertion order. Patterns live in per-level buckets keyed by a sequence
// number. Records are JSON. Model settings live in the meta bucket.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/shape"
	"github.com/cognicore/shaper/pkg/shaper/store"
)

// Bucket keys
var (
	bucketChars      = []byte("chars")
	bucketCharLevels = []byte("char_levels")
	bucketPatterns   = []byte("patterns")
	bucketMeta       = []byte("meta")

	keyBase = []byte("base")
)

var buckets = [][]byte{bucketChars, bucketCharLevels, bucketPatterns, bucketMeta}

// Store implements store.Store backed by bbolt.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %v: %w", err, internalerr.ErrStoreUnavailable)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func levelKey(level int) []byte {
	return []byte(strconv.Itoa(level))
}

func seqKey(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// SaveChar stores c under a fresh UUID.
func (s *Store) SaveChar(ctx context.Context, c shape.Char) (shape.CharID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Level < 1 {
		return "", fmt.Errorf("char level %d: %w", c.Level, internalerr.ErrInvalidInput)
	}

	id := shape.CharID(uuid.NewString())
	data, err := store.MarshalChar(id, c)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketChars).Put([]byte(id), data); err != nil {
			return err
		}
		lb, err := tx.Bucket(bucketCharLevels).CreateBucketIfNotExists(levelKey(c.Level))
		if err != nil {
			return err
		}
		seq, err := lb.NextSequence()
		if err != nil {
			return err
		}
		return lb.Put(seqKey(seq), []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("save char: %w", err)
	}
	return id, nil
}

// LoadChars returns every char of a level in insertion order.
func (s *Store) LoadChars(ctx context.Context, level int) ([]shape.Char, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		lb := tx.Bucket(bucketCharLevels).Bucket(levelKey(level))
		if lb == nil {
			return nil
		}
		chars := tx.Bucket(bucketChars)
		return lb.ForEach(func(_, id []byte) error {
			v := chars.Get(id)
			if v == nil {
				return fmt.Errorf("level %d lists missing char %s: %w", level, id, internalerr.ErrCorrupt)
			}
			// Copy bytes out of the transaction (bbolt slices are only valid within tx)
			raw = append(raw, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]shape.Char, 0, len(raw))
	for _, data := range raw {
		c, err := store.UnmarshalChar(data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadChar retrieves a char by ID.
func (s *Store) LoadChar(ctx context.Context, id shape.CharID) (shape.Char, bool, error) {
	if err := ctx.Err(); err != nil {
		return shape.Char{}, false, err
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketChars).Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return shape.Char{}, false, err
	}

	c, err := store.UnmarshalChar(data)
	if err != nil {
		return shape.Char{}, false, err
	}
	return c, true, nil
}

// SavePattern stores a pattern record under a fresh UUID.
func (s *Store) SavePattern(ctx context.Context, p shape.Pattern, sc shape.SampleCount) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Level < 0 {
		return "", fmt.Errorf("pattern level %d: %w", p.Level, internalerr.ErrInvalidInput)
	}

	id := uuid.NewString()
	data, err := store.MarshalPattern(id, p, sc)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		pb, err := tx.Bucket(bucketPatterns).CreateBucketIfNotExists(levelKey(p.Level))
		if err != nil {
			return err
		}
		seq, err := pb.NextSequence()
		if err != nil {
			return err
		}
		return pb.Put(seqKey(seq), data)
	})
	if err != nil {
		return "", fmt.Errorf("save pattern: %w", err)
	}
	return id, nil
}

// LoadPatterns returns every pattern of a level in insertion order.
func (s *Store) LoadPatterns(ctx context.Context, level int) ([]store.PatternRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		pb := tx.Bucket(bucketPatterns).Bucket(levelKey(level))
		if pb == nil {
			return nil
		}
		return pb.ForEach(func(_, v []byte) error {
			raw = append(raw, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]store.PatternRecord, 0, len(raw))
	for _, data := range raw {
		rec, err := store.UnmarshalPattern(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// SaveBase records the run-length base of the model.
func (s *Store) SaveBase(ctx context.Context, base int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if base < 2 {
		return fmt.Errorf("base %d: %w", base, internalerr.ErrInvalidInput)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyBase, []byte(strconv.Itoa(base)))
	})
	if err != nil {
		return fmt.Errorf("save base: %w", err)
	}
	return nil
}

// LoadBase returns the saved base.
func (s *Store) LoadBase(ctx context.Context) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyBase); v != nil {
			value = string(v)
		}
		return nil
	})
	if err != nil || value == "" {
		return 0, false, err
	}
	base, err := strconv.Atoi(value)
	if err != nil || base < 2 {
		return 0, false, fmt.Errorf("stored base %q: %w", value, internalerr.ErrCorrupt)
	}
	return base, true, nil
}

// ClearAll drops and recreates every bucket in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ store.Store = (*Store)(nil)
