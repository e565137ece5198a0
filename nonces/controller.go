// Package nonces serializes nonce allocation per (network, address) and
// keeps crash-resumable uniqueness-token reservations, so the same logical
// action always gets the same nonce.
package nonces

import (
	"errors"
	"sync"
	"time"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/pborman/uuid"
)

// controller errors
var (
	ErrAcquireLockTimeout = errors.New("acquire nonce lock timeout, synchronization error")
	ErrGetPoolNonceFailed = errors.New("get pool nonce failed")
)

// Store is the durable side of the controller: the uniqueness-token
// reservation records and the TTL-bounded allocation lease. The two are
// one coordinated unit, the lease alone does not give replay safety.
type Store interface {
	FindReservedNonce(key string) (nonce uint64, exist bool, err error)
	AddReservedNonce(network, address, uniqToken string, nonce uint64) error
	TryLock(key, leaseID string, ttl time.Duration) (held bool, err error)
	Unlock(key, leaseID string) error
}

// Cache is the fast next-free-nonce counter, entries carry a multi-day
// expiry so a long-idle account falls back to the network's pool nonce.
type Cache interface {
	GetNextNonce(key string) (uint64, bool)
	SetNextNonce(key string, next uint64)
}

// PoolNonceGetter asks the chain for its view of the next account nonce.
type PoolNonceGetter func(network, address string) (uint64, error)

// Controller implements ReserveNonce over a Store, a Cache and the
// network's pool nonce.
type Controller struct {
	store     Store
	cache     Cache
	poolNonce PoolNonceGetter

	lockTTL           time.Duration
	lockRetryInterval time.Duration
	lockWaitTimeout   time.Duration

	mutexes   map[string]*sync.Mutex
	mutexesMu sync.Mutex
}

// NewController new controller with the default lock bounds
// (retry every 1s, give up after 20s).
func NewController(store Store, cache Cache, poolNonce PoolNonceGetter) *Controller {
	return &Controller{
		store:             store,
		cache:             cache,
		poolNonce:         poolNonce,
		lockTTL:           60 * time.Second,
		lockRetryInterval: 1 * time.Second,
		lockWaitTimeout:   20 * time.Second,
		mutexes:           make(map[string]*sync.Mutex),
	}
}

func (c *Controller) accountMutex(lockKey string) *sync.Mutex {
	c.mutexesMu.Lock()
	defer c.mutexesMu.Unlock()
	mutex, exist := c.mutexes[lockKey]
	if !exist {
		mutex = new(sync.Mutex)
		c.mutexes[lockKey] = mutex
	}
	return mutex
}

// ReserveNonce allocate (or replay) the nonce of one logical action.
// The reservation record is read before any allocation: a token seen
// before gets its recorded nonce verbatim, this is what makes
// resubmission after a crash safe.
func (c *Controller) ReserveNonce(network, address, uniqToken string) (uint64, error) {
	reservationKey := common.LowerKey(network, address, uniqToken)
	if nonce, exist, err := c.store.FindReservedNonce(reservationKey); err != nil {
		return 0, err
	} else if exist {
		log.Debug("[nonces] replay reserved nonce", "network", network, "address", address, "uniqToken", uniqToken, "nonce", nonce)
		return nonce, nil
	}

	lockKey := common.LowerKey(network, address)
	mutex := c.accountMutex(lockKey)
	mutex.Lock()
	defer mutex.Unlock()

	leaseID := uuid.NewRandom().String()
	if err := c.acquireLease(lockKey, leaseID); err != nil {
		return 0, err
	}
	defer func() {
		if err := c.store.Unlock(lockKey, leaseID); err != nil {
			log.Warn("[nonces] release nonce lock failed", "lockKey", lockKey, "err", err)
		}
	}()

	// recheck under the lease, another process may have reserved this
	// exact token meanwhile
	if nonce, exist, err := c.store.FindReservedNonce(reservationKey); err != nil {
		return 0, err
	} else if exist {
		return nonce, nil
	}

	next, err := c.nextFreeNonce(network, address, lockKey)
	if err != nil {
		return 0, err
	}

	err = c.store.AddReservedNonce(network, address, uniqToken, next)
	if err != nil {
		return 0, err
	}
	c.cache.SetNextNonce(lockKey, next+1)
	log.Info("[nonces] reserved nonce", "network", network, "address", address, "uniqToken", uniqToken, "nonce", next)
	return next, nil
}

func (c *Controller) acquireLease(lockKey, leaseID string) error {
	deadline := time.Now().Add(c.lockWaitTimeout)
	for {
		held, err := c.store.TryLock(lockKey, leaseID, c.lockTTL)
		if err != nil {
			return err
		}
		if !held {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrAcquireLockTimeout
		}
		time.Sleep(c.lockRetryInterval)
	}
}

// nextFreeNonce the allocation counter: the cached counter when live,
// corrected against the chain's pool nonce so external transactions from
// the same account never cause reuse.
func (c *Controller) nextFreeNonce(network, address, lockKey string) (uint64, error) {
	poolNonce, err := c.poolNonce(network, address)
	if err != nil {
		return 0, ErrGetPoolNonceFailed
	}
	if cached, ok := c.cache.GetNextNonce(lockKey); ok && cached > poolNonce {
		return cached, nil
	}
	return poolNonce, nil
}
