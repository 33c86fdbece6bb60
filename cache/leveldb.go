package cache

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBCache stores entries on disk in a LevelDB database.
//
// Each value is stored under "e:<key>" prefixed with its expiry as an
// 8-byte big-endian unix nanosecond timestamp. Expired entries are removed
// lazily on read and by Compact.
type LevelDBCache struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	closed bool
}

const levelDBEntryPrefix = "e:"

// OpenLevelDB opens or creates a LevelDB-backed cache at path.
func OpenLevelDB(path string) (*LevelDBCache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBCache{db: db}, nil
}

// Get retrieves a value. Returns (nil, false) on miss, expiry or read error.
func (c *LevelDBCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false
	}

	raw, err := c.db.Get([]byte(levelDBEntryPrefix+key), nil)
	if err != nil {
		return nil, false
	}
	value, expiresAt, ok := decodeLevelDBEntry(raw)
	if !ok {
		return nil, false
	}
	if time.Now().After(expiresAt) {
		_ = c.db.Delete([]byte(levelDBEntryPrefix+key), nil)
		return nil, false
	}
	return value, true
}

// Set stores value with the given TTL. TTL<=0 stores nothing.
func (c *LevelDBCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	return c.db.Put([]byte(levelDBEntryPrefix+key), encodeLevelDBEntry(value, time.Now().Add(ttl)), nil)
}

// Delete removes a value. Idempotent - no error on miss.
func (c *LevelDBCache) Delete(_ context.Context, key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return c.db.Delete([]byte(levelDBEntryPrefix+key), nil)
}

// Keys lists unexpired keys with the given prefix.
func (c *LevelDBCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	it := c.db.NewIterator(util.BytesPrefix([]byte(levelDBEntryPrefix+prefix)), nil)
	defer it.Release()

	now := time.Now()
	var keys []string
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, expiresAt, ok := decodeLevelDBEntry(it.Value())
		if !ok || now.After(expiresAt) {
			continue
		}
		keys = append(keys, string(it.Key()[len(levelDBEntryPrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Compact deletes every expired entry in one batch and returns how many
// were removed.
func (c *LevelDBCache) Compact(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, ErrClosed
	}

	it := c.db.NewIterator(util.BytesPrefix([]byte(levelDBEntryPrefix)), nil)
	defer it.Release()

	now := time.Now()
	batch := new(leveldb.Batch)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		_, expiresAt, ok := decodeLevelDBEntry(it.Value())
		if !ok || now.After(expiresAt) {
			batch.Delete(append([]byte(nil), it.Key()...))
		}
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := c.db.Write(batch, nil); err != nil {
		return 0, err
	}
	return batch.Len(), nil
}

// Close closes the underlying database. Further calls return ErrClosed.
func (c *LevelDBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func encodeLevelDBEntry(value []byte, expiresAt time.Time) []byte {
	out := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(out[:8], uint64(expiresAt.UnixNano()))
	copy(out[8:], value)
	return out
}

func decodeLevelDBEntry(raw []byte) ([]byte, time.Time, bool) {
	if len(raw) < 8 {
		return nil, time.Time{}, false
	}
	expiresAt := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	value := make([]byte, len(raw)-8)
	copy(value, raw[8:])
	return value, expiresAt, true
}

// Ensure LevelDBCache implements Cache
var _ Cache = (*LevelDBCache)(nil)
