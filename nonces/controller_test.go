package nonces

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/stretchr/testify/assert"
)

type memStore struct {
	mu       sync.Mutex
	reserved map[string]uint64
	locks    map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		reserved: make(map[string]uint64),
		locks:    make(map[string]string),
	}
}

func (s *memStore) FindReservedNonce(key string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nonce, exist := s.reserved[key]
	return nonce, exist, nil
}

func (s *memStore) AddReservedNonce(network, address, uniqToken string, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved[common.LowerKey(network, address, uniqToken)] = nonce
	return nil
}

func (s *memStore) TryLock(key, leaseID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[key]; held {
		return true, nil
	}
	s.locks[key] = leaseID
	return false, nil
}

func (s *memStore) Unlock(key, leaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] == leaseID {
		delete(s.locks, key)
	}
	return nil
}

type memCache struct {
	mu   sync.Mutex
	next map[string]uint64
}

func newMemCache() *memCache {
	return &memCache{next: make(map[string]uint64)}
}

func (c *memCache) GetNextNonce(key string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, ok := c.next[key]
	return next, ok
}

func (c *memCache) SetNextNonce(key string, next uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next[key] = next
}

func staticPoolNonce(nonce uint64) PoolNonceGetter {
	return func(network, address string) (uint64, error) {
		return nonce, nil
	}
}

func TestReserveNonceDistinctTokens(t *testing.T) {
	controller := NewController(newMemStore(), newMemCache(), staticPoolNonce(10))

	const count = 20
	results := make([]uint64, count)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nonce, err := controller.ReserveNonce("goerli", "0xabc", fmt.Sprintf("swap-%d:HTLCLock", i))
			assert.NoError(t, err)
			results[i] = nonce
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, nonce := range results {
		assert.Equal(t, uint64(10+i), nonce, "nonces must be distinct and strictly increasing")
	}
}

func TestReserveNonceReplaySameToken(t *testing.T) {
	controller := NewController(newMemStore(), newMemCache(), staticPoolNonce(7))

	first, err := controller.ReserveNonce("goerli", "0xabc", "swap-1:HTLCLock")
	assert.NoError(t, err)

	// same uniqueness token after a simulated crash gets the same nonce
	second, err := controller.ReserveNonce("goerli", "0xabc", "swap-1:HTLCLock")
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	// a different token draws a new one
	other, err := controller.ReserveNonce("goerli", "0xabc", "swap-2:HTLCLock")
	assert.NoError(t, err)
	assert.Equal(t, first+1, other)
}

func TestReserveNonceIndependentAccounts(t *testing.T) {
	controller := NewController(newMemStore(), newMemCache(), staticPoolNonce(0))

	a, err := controller.ReserveNonce("goerli", "0xaaa", "swap-1:HTLCLock")
	assert.NoError(t, err)
	b, err := controller.ReserveNonce("goerli", "0xbbb", "swap-1:HTLCRedeem")
	assert.NoError(t, err)
	c, err := controller.ReserveNonce("fuji", "0xaaa", "swap-1:HTLCRefund")
	assert.NoError(t, err)

	// no ordering across addresses or networks, each starts at the pool nonce
	assert.Equal(t, uint64(0), a)
	assert.Equal(t, uint64(0), b)
	assert.Equal(t, uint64(0), c)
}

func TestReserveNonceRespectsPoolNonce(t *testing.T) {
	cache := newMemCache()
	// stale low counter must lose against a higher chain pool nonce
	cache.SetNextNonce(common.LowerKey("goerli", "0xabc"), 3)
	controller := NewController(newMemStore(), cache, staticPoolNonce(42))

	nonce, err := controller.ReserveNonce("goerli", "0xabc", "swap-9:HTLCLock")
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), nonce)
}

func TestReserveNonceLockTimeout(t *testing.T) {
	store := newMemStore()
	// lock is already held by a foreign lease and never expires
	store.locks[common.LowerKey("goerli", "0xabc")] = "foreign-lease"

	controller := NewController(store, newMemCache(), staticPoolNonce(0))
	controller.lockRetryInterval = 10 * time.Millisecond
	controller.lockWaitTimeout = 50 * time.Millisecond

	_, err := controller.ReserveNonce("goerli", "0xabc", "swap-1:HTLCLock")
	assert.Equal(t, ErrAcquireLockTimeout, err)
}

func TestReserveNoncePoolNonceError(t *testing.T) {
	failing := func(network, address string) (uint64, error) {
		return 0, fmt.Errorf("rpc down")
	}
	controller := NewController(newMemStore(), newMemCache(), failing)
	_, err := controller.ReserveNonce("goerli", "0xabc", "swap-1:HTLCLock")
	assert.Equal(t, ErrGetPoolNonceFailed, err)
}
