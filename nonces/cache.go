package nonces

import (
	"encoding/binary"
	"time"

	"github.com/crosslock/CrossChain-Solver/leveldb"
	"github.com/crosslock/CrossChain-Solver/log"
)

// DefaultCounterExpiry how long a cached next-free counter stays
// authoritative without new allocations.
const DefaultCounterExpiry = 3 * 24 * time.Hour

// LevelDBCache stores next-free-nonce counters in the local leveldb
// store. Each value carries its expiry, a stale counter reads as absent.
type LevelDBCache struct {
	db     *leveldb.Database
	expiry time.Duration
}

// NewLevelDBCache new cache over an opened database
func NewLevelDBCache(db *leveldb.Database, expiry time.Duration) *LevelDBCache {
	if expiry <= 0 {
		expiry = DefaultCounterExpiry
	}
	return &LevelDBCache{db: db, expiry: expiry}
}

func counterKey(key string) []byte {
	return []byte("noncecounter:" + key)
}

// GetNextNonce implements Cache
func (c *LevelDBCache) GetNextNonce(key string) (uint64, bool) {
	value, err := c.db.Get(counterKey(key))
	if err != nil {
		if !leveldb.IsNotFoundErr(err) {
			log.Warn("[nonces] read counter cache failed", "key", key, "err", err)
		}
		return 0, false
	}
	if len(value) != 16 {
		return 0, false
	}
	expireAt := int64(binary.BigEndian.Uint64(value[8:]))
	if time.Now().Unix() >= expireAt {
		return 0, false
	}
	return binary.BigEndian.Uint64(value[:8]), true
}

// SetNextNonce implements Cache
func (c *LevelDBCache) SetNextNonce(key string, next uint64) {
	value := make([]byte, 16)
	binary.BigEndian.PutUint64(value[:8], next)
	binary.BigEndian.PutUint64(value[8:], uint64(time.Now().Add(c.expiry).Unix()))
	if err := c.db.Put(counterKey(key), value); err != nil {
		log.Warn("[nonces] write counter cache failed", "key", key, "err", err)
	}
}
