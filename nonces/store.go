package nonces

import (
	"errors"
	"time"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/mongodb"
)

// MongoStore backs the controller with the mongodb collections
// ReservedNonces and NonceLocks.
type MongoStore struct{}

// NewMongoStore new mongo backed store
func NewMongoStore() *MongoStore {
	return &MongoStore{}
}

// FindReservedNonce implements Store
func (s *MongoStore) FindReservedNonce(key string) (uint64, bool, error) {
	record, err := mongodb.FindReservedNonce(key)
	if err != nil {
		if mongodb.IsNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return record.Nonce, true, nil
}

// AddReservedNonce implements Store
func (s *MongoStore) AddReservedNonce(network, address, uniqToken string, nonce uint64) error {
	return mongodb.AddReservedNonce(&mongodb.MgoReservedNonce{
		Key:       common.LowerKey(network, address, uniqToken),
		Network:   network,
		Address:   address,
		UniqToken: uniqToken,
		Nonce:     nonce,
		Timestamp: time.Now().Unix(),
	})
}

// TryLock implements Store, held is true while another live lease owns
// the lock.
func (s *MongoStore) TryLock(key, leaseID string, ttl time.Duration) (bool, error) {
	err := mongodb.TryLockNonce(key, leaseID, ttl)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, mongodb.ErrLockIsHeld) {
		return true, nil
	}
	return false, err
}

// Unlock implements Store
func (s *MongoStore) Unlock(key, leaseID string) error {
	return mongodb.UnlockNonce(key, leaseID)
}
