package lookup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/haasonsaas/nqbench/pkg/models"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("lookup")

const compileBatchSize = 10000

// BoltStore resolves identifiers from a compiled bolt file without loading
// the whole table into memory.
type BoltStore struct {
	db  *bolt.DB
	len int
}

// OpenBolt opens a compiled lookup store read-only.
func OpenBolt(path string) (*BoltStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open lookup store: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open lookup store: %w", err)
	}
	store := &BoltStore{db: db}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return fmt.Errorf("lookup store %s has no %q bucket", path, bucketName)
		}
		store.len = b.Stats().KeyN
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *BoltStore) Get(id string) (models.LookupEntry, bool, error) {
	var (
		entry models.LookupEntry
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return models.LookupEntry{}, false, fmt.Errorf("lookup %s: %w", id, err)
	}
	return entry, found, nil
}

func (s *BoltStore) Len() int { return s.len }

func (s *BoltStore) Close() error { return s.db.Close() }

// Compile streams a JSON lookup table into a bolt store at dst, replacing any
// existing file, and returns the number of entries written.
func Compile(ctx context.Context, src, dst string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open lookup table: %w", err)
	}
	defer in.Close()

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("remove existing store: %w", err)
	}
	db, err := bolt.Open(dst, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return 0, fmt.Errorf("create lookup store: %w", err)
	}
	defer db.Close()

	dec := json.NewDecoder(bufio.NewReader(in))
	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("parse lookup table: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return 0, fmt.Errorf("parse lookup table: expected object, got %v", tok)
	}

	count := 0
	batch := make(map[string][]byte, compileBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := db.Update(func(tx *bolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists(bucketName)
			if err != nil {
				return err
			}
			for k, v := range batch {
				if err := b.Put([]byte(k), v); err != nil {
					return err
				}
			}
			return nil
		})
		clear(batch)
		return err
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		keyTok, err := dec.Token()
		if err != nil {
			return count, fmt.Errorf("parse lookup key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return count, fmt.Errorf("parse lookup key: unexpected %v", keyTok)
		}
		var entry models.LookupEntry
		if err := dec.Decode(&entry); err != nil {
			return count, fmt.Errorf("parse lookup entry %s: %w", key, err)
		}
		value, err := json.Marshal(entry)
		if err != nil {
			return count, fmt.Errorf("encode lookup entry %s: %w", key, err)
		}
		batch[key] = value
		count++
		if len(batch) >= compileBatchSize {
			if err := flush(); err != nil {
				return count, fmt.Errorf("write lookup store: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return count, fmt.Errorf("write lookup store: %w", err)
	}
	// An empty table still gets its bucket so OpenBolt succeeds.
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return count, fmt.Errorf("write lookup store: %w", err)
	}
	return count, db.Close()
}
