// Package leveldb is a small wrapper of goleveldb used as the local
// fast cache (eg. the next-free-nonce counters).
package leveldb

import (
	"errors"

	"github.com/crosslock/CrossChain-Solver/log"
	goleveldb "github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// minimum megabytes of memory to allocate to read and write caching
	minCache = 16

	// minimum number of file handles to the open database files
	minHandles = 16
)

// IsNotFoundErr is err 'ErrNotFound'
func IsNotFoundErr(err error) bool {
	return errors.Is(err, dberrors.ErrNotFound)
}

// Database is a persistent local key-value store.
type Database struct {
	path  string
	lvldb *goleveldb.DB
}

// New returns a wrapped LevelDB object at path.
func New(path string, cache, handles int) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	options := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
	db, err := goleveldb.OpenFile(path, options)
	if dberrors.IsCorrupted(err) {
		db, err = goleveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	log.Info("[leveldb] open database", "path", path, "cache", cache, "handles", handles)
	return &Database{path: path, lvldb: db}, nil
}

// Close flushes and closes the underlying store.
func (db *Database) Close() error {
	return db.lvldb.Close()
}

// Has retrieves if a key is present.
func (db *Database) Has(key []byte) (bool, error) {
	return db.lvldb.Has(key, nil)
}

// Get retrieves the given key if it's present.
func (db *Database) Get(key []byte) ([]byte, error) {
	return db.lvldb.Get(key, nil)
}

// Put inserts the given value.
func (db *Database) Put(key, value []byte) error {
	return db.lvldb.Put(key, value, nil)
}

// Delete removes the key.
func (db *Database) Delete(key []byte) error {
	return db.lvldb.Delete(key, nil)
}
