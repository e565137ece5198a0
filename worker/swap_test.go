package worker

import (
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/processor"
	"github.com/crosslock/CrossChain-Solver/quote"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

var testHashlock = "0x" + strings.Repeat("11", 32)

// memSwapStore in-memory stand-in for the swap collection, with the
// same conditional-update semantics as the mongodb implementation.
type memSwapStore struct {
	mu    sync.Mutex
	swaps map[string]*mongodb.MgoSwap
}

func newMemSwapStore() *memSwapStore {
	return &memSwapStore{swaps: make(map[string]*mongodb.MgoSwap)}
}

func (s *memSwapStore) install() (restore func()) {
	origAdd, origFind := addSwap, findSwap
	origUpdate, origObserved := updateSwapStatusIf, updateSwapLockObserved
	addSwap = s.add
	findSwap = s.find
	updateSwapStatusIf = s.updateStatusIf
	updateSwapLockObserved = s.updateLockObserved
	return func() {
		addSwap, findSwap = origAdd, origFind
		updateSwapStatusIf, updateSwapLockObserved = origUpdate, origObserved
	}
}

func (s *memSwapStore) add(swap *mongodb.MgoSwap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exist := s.swaps[swap.Key]; exist {
		return mongodb.ErrItemIsDup
	}
	cp := *swap
	s.swaps[swap.Key] = &cp
	return nil
}

func (s *memSwapStore) find(key string) (*mongodb.MgoSwap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	swap, exist := s.swaps[key]
	if !exist {
		return nil, mongodb.ErrItemNotFound
	}
	cp := *swap
	return &cp, nil
}

func (s *memSwapStore) updateStatusIf(key string, fromStatus, status mongodb.SwapStatus, resumeAt int64, memo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	swap, exist := s.swaps[key]
	if !exist || swap.Status != fromStatus {
		return mongodb.ErrItemNotFound
	}
	swap.Status = status
	swap.ResumeAt = resumeAt
	if memo != "" {
		swap.Memo = memo
	}
	return nil
}

func (s *memSwapStore) updateLockObserved(key string, srcTimelock int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	swap, exist := s.swaps[key]
	if !exist {
		return mongodb.ErrItemNotFound
	}
	swap.LockObserved = true
	if srcTimelock != 0 {
		swap.SrcTimelock = srcTimelock
	}
	return nil
}

func (s *memSwapStore) get(key string) *mongodb.MgoSwap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swaps[key]
}

type fakeExecutor struct {
	execute func(args *tokens.BuildTxArgs) (*processor.Result, error)
}

func (f *fakeExecutor) Execute(args *tokens.BuildTxArgs) (*processor.Result, error) {
	return f.execute(args)
}

func installExecutor(f *fakeExecutor) (restore func()) {
	orig := txProcessor
	txProcessor = f
	return func() { txProcessor = orig }
}

func TestProcessCommitEventIdempotent(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	quote.SetRoutes([]*quote.Route{{
		SrcNetwork: "srcnet", SrcToken: "ETH",
		DstNetwork: "dstnet", DstToken: "USDT",
		RateNumerator: 1, RateDenominator: 1,
		MinAmount: big.NewInt(1), MaxAmount: big.NewInt(1000000),
		Enabled: true,
	}})
	defer quote.SetRoutes(nil)

	network := &tokens.Network{
		Name:            "srcnet",
		NativeToken:     "ETH",
		ManagedAccounts: []*tokens.ManagedAccount{{Address: "0x1111", Role: tokens.RolePrimary}},
	}
	event := &tokens.CommitEvent{
		CommitID:   "0x" + strings.Repeat("aa", 32),
		TxHash:     "0xcommit",
		Sender:     "0x2222",
		Receiver:   "0x1111",
		Amount:     big.NewInt(500),
		Timelock:   now() + 7200,
		DstNetwork: "dstnet",
		DstAsset:   "USDT",
		DstAddress: "0x3333",
	}
	processCommitEvent(network, event)
	processCommitEvent(network, event)

	assert.Equal(t, 1, len(store.swaps))
	swap := store.get(strings.ToLower(event.CommitID))
	if assert.NotNil(t, swap) {
		assert.Equal(t, mongodb.SwapQuoting, swap.Status)
		assert.Equal(t, "500", swap.SrcAmount)
	}
}

func TestProcessLockEventKeptWhileDstLockConfirming(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	key := strings.Repeat("bb", 32)
	_ = store.add(&mongodb.MgoSwap{
		Key:      key,
		Hashlock: testHashlock,
		Status:   mongodb.SwapDstLocking,
	})

	srcTimelock := now() + 7200
	processLockEvent(&tokens.Network{Name: "srcnet"}, &tokens.LockEvent{
		CommitID: key,
		Hashlock: testHashlock,
		Timelock: srcTimelock,
	})

	swap := store.get(key)
	assert.True(t, swap.LockObserved)
	assert.Equal(t, srcTimelock, swap.SrcTimelock)
	assert.Equal(t, mongodb.SwapDstLocking, swap.Status)

	// once the saga confirmed its destination lock, the kept observation
	// promotes the swap instead of idling it into a refund
	swap.Status = mongodb.SwapAwaitingLock
	processAwaitingLock(swap)
	assert.Equal(t, mongodb.SwapRedeeming, store.get(key).Status)
}

func TestProcessLockEventPromotesWaitingSwap(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	key := strings.Repeat("cc", 32)
	_ = store.add(&mongodb.MgoSwap{
		Key:      key,
		Hashlock: testHashlock,
		Status:   mongodb.SwapAwaitingLock,
	})

	processLockEvent(&tokens.Network{Name: "srcnet"}, &tokens.LockEvent{
		CommitID: key,
		Hashlock: testHashlock,
		Timelock: now() + 7200,
	})

	swap := store.get(key)
	assert.True(t, swap.LockObserved)
	assert.Equal(t, mongodb.SwapRedeeming, swap.Status)
}

func TestProcessLockEventRejectsWrongHashlock(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	key := strings.Repeat("dd", 32)
	_ = store.add(&mongodb.MgoSwap{
		Key:      key,
		Hashlock: testHashlock,
		Status:   mongodb.SwapAwaitingLock,
	})

	processLockEvent(&tokens.Network{Name: "srcnet"}, &tokens.LockEvent{
		CommitID: key,
		Hashlock: "0x" + strings.Repeat("99", 32),
		Timelock: now() + 7200,
	})

	swap := store.get(key)
	assert.False(t, swap.LockObserved)
	assert.Equal(t, mongodb.SwapAwaitingLock, swap.Status)
}

func TestStaleStepCannotOverwriteNewerStatus(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	key := strings.Repeat("ee", 32)
	_ = store.add(&mongodb.MgoSwap{Key: key, Status: mongodb.SwapRedeeming, ResumeAt: 42})

	// a worker still holding the row from before the listener's flip
	stale := &mongodb.MgoSwap{Key: key, Status: mongodb.SwapAwaitingLock}
	rescheduleSwap(stale, 30, "recheck")
	advanceSwap(stale, mongodb.SwapRefunding, "")

	swap := store.get(key)
	assert.Equal(t, mongodb.SwapRedeeming, swap.Status)
	assert.Equal(t, int64(42), swap.ResumeAt)
}

func TestRefundSweepLeavesWaitingSwapAlone(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	for _, status := range []mongodb.SwapStatus{mongodb.SwapDstLocking, mongodb.SwapAwaitingLock, mongodb.SwapRedeeming} {
		key := "healthy-" + status.String()
		_ = store.add(&mongodb.MgoSwap{
			Key:         key,
			Status:      status,
			DstTimelock: now() + 3600,
		})
		processNonRefundedSwap(store.get(key))
		assert.Equal(t, status, store.get(key).Status, "status %v", status)
	}
}

func TestRefundSweepForcesExpiredSwapToRefunding(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	key := "expired-awaiting"
	_ = store.add(&mongodb.MgoSwap{
		Key:         key,
		Status:      mongodb.SwapAwaitingLock,
		DstTimelock: now() - 10,
	})
	processNonRefundedSwap(store.get(key))
	assert.Equal(t, mongodb.SwapRefunding, store.get(key).Status)
}

func TestDstLockHorizonExpiryGoesToRefunding(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	defer installExecutor(&fakeExecutor{
		execute: func(args *tokens.BuildTxArgs) (*processor.Result, error) {
			return nil, processor.ErrConfirmExpired
		},
	})()
	tokens.SetNetworks([]*tokens.Network{{
		Name:            "dstnet",
		NativeToken:     "USDT",
		HTLCContract:    "0xhtlc",
		Tokens:          []*tokens.Token{{Symbol: "USDT"}},
		ManagedAccounts: []*tokens.ManagedAccount{{Address: "0x1111", Role: tokens.RolePrimary}},
	}})
	defer tokens.SetNetworks(nil)

	key := "horizon-expired"
	_ = store.add(&mongodb.MgoSwap{
		Key:         key,
		Status:      mongodb.SwapDstLocking,
		DstNetwork:  "dstnet",
		DstToken:    "USDT",
		DstAmount:   "1000",
		DstAddress:  "0x3333",
		Hashlock:    testHashlock,
		DstTimelock: now() + 3600,
	})
	processDstLocking(store.get(key))

	// a published lock may still land, the funds must stay visible to
	// the refund path instead of vanishing into a failed state
	assert.Equal(t, mongodb.SwapRefunding, store.get(key).Status)
}

func TestDstLockCarriesRouteReward(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	var lockArgs *tokens.BuildTxArgs
	defer installExecutor(&fakeExecutor{
		execute: func(args *tokens.BuildTxArgs) (*processor.Result, error) {
			if args.TxType == tokens.HTLCLockTx {
				lockArgs = args
			}
			return &processor.Result{TxHash: "0xlock"}, nil
		},
	})()
	tokens.SetNetworks([]*tokens.Network{{
		Name:            "dstnet",
		NativeToken:     "USDT",
		HTLCContract:    "0xhtlc",
		Tokens:          []*tokens.Token{{Symbol: "USDT"}},
		ManagedAccounts: []*tokens.ManagedAccount{{Address: "0x1111", Role: tokens.RolePrimary}},
	}})
	defer tokens.SetNetworks(nil)
	quote.SetRoutes([]*quote.Route{{
		SrcNetwork: "srcnet", SrcToken: "ETH",
		DstNetwork: "dstnet", DstToken: "USDT",
		RateNumerator: 1, RateDenominator: 1,
		MinAmount: big.NewInt(1), MaxAmount: big.NewInt(1000000),
		LockReward: big.NewInt(5), RewardWindow: 300,
		Enabled: true,
	}})
	defer quote.SetRoutes(nil)

	key := "rewarded-lock"
	dstTimelock := now() + 3600
	_ = store.add(&mongodb.MgoSwap{
		Key:         key,
		Status:      mongodb.SwapDstLocking,
		SrcNetwork:  "srcnet",
		SrcToken:    "ETH",
		DstNetwork:  "dstnet",
		DstToken:    "USDT",
		DstAmount:   "1000",
		DstAddress:  "0x3333",
		Hashlock:    testHashlock,
		DstTimelock: dstTimelock,
	})
	processDstLocking(store.get(key))

	if assert.NotNil(t, lockArgs) {
		assert.Equal(t, big.NewInt(5), lockArgs.Reward)
		assert.Greater(t, lockArgs.RewardTimelock, now()-1)
		assert.LessOrEqual(t, lockArgs.RewardTimelock, dstTimelock)
	}
	assert.Equal(t, mongodb.SwapAwaitingLock, store.get(key).Status)
}

func TestLockSigRequestSubmitsSourceLock(t *testing.T) {
	store := newMemSwapStore()
	defer store.install()()
	var sigArgs *tokens.BuildTxArgs
	defer installExecutor(&fakeExecutor{
		execute: func(args *tokens.BuildTxArgs) (*processor.Result, error) {
			sigArgs = args
			return &processor.Result{TxHash: "0xaddlock"}, nil
		},
	})()

	key := "locksig-requested"
	lockSigTimelock := now() + 7200
	_ = store.add(&mongodb.MgoSwap{
		Key:              key,
		Status:           mongodb.SwapAwaitingLock,
		SrcNetwork:       "srcnet",
		Receiver:         "0x1111",
		DstTimelock:      now() + 3600,
		LockSigRequested: true,
		LockSigTimelock:  lockSigTimelock,
	})
	processAwaitingLock(store.get(key))

	if assert.NotNil(t, sigArgs) {
		assert.Equal(t, tokens.HTLCAddLockSigTx, sigArgs.TxType)
		assert.Equal(t, "srcnet", sigArgs.Network)
		assert.Equal(t, "0x1111", sigArgs.From)
		assert.Equal(t, lockSigTimelock, sigArgs.Timelock)
	}
	// the listener's lock observation still drives the promotion
	assert.Equal(t, mongodb.SwapAwaitingLock, store.get(key).Status)
}
