package processor

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/nonces"
	"github.com/crosslock/CrossChain-Solver/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFamily = tokens.ChainFamily("testchain")

type fakeAdapter struct {
	mu sync.Mutex

	estimateFee  func() (*tokens.Fee, error)
	getBalance   func(asset string) (*big.Int, error)
	send         func() (string, error)
	getReceipt   func(txHash string) (*tokens.TxReceipt, error)
	poolNonce    uint64
	sendCalls    int
	estimateRuns int
}

func (a *fakeAdapter) Family() tokens.ChainFamily { return testFamily }

func (a *fakeAdapter) BuildTransaction(network *tokens.Network, args *tokens.BuildTxArgs) (interface{}, error) {
	return map[string]interface{}{"to": args.To}, nil
}

func (a *fakeAdapter) EstimateFee(network *tokens.Network, rawTx interface{}) (*tokens.Fee, error) {
	a.mu.Lock()
	a.estimateRuns++
	a.mu.Unlock()
	if a.estimateFee != nil {
		return a.estimateFee()
	}
	return &tokens.Fee{Asset: "TST", Legacy: &tokens.LegacyFee{GasPrice: big.NewInt(100), GasLimit: 21000}}, nil
}

func (a *fakeAdapter) GetBalance(network *tokens.Network, address, asset string) (*big.Int, error) {
	if a.getBalance != nil {
		return a.getBalance(asset)
	}
	return big.NewInt(1e18), nil
}

func (a *fakeAdapter) SignTransaction(network *tokens.Network, rawTx interface{}, from string) (interface{}, string, error) {
	return rawTx, "0xsigned", nil
}

func (a *fakeAdapter) SendTransaction(network *tokens.Network, signedTx interface{}) (string, error) {
	a.mu.Lock()
	a.sendCalls++
	a.mu.Unlock()
	if a.send != nil {
		return a.send()
	}
	return "0xpublished", nil
}

func (a *fakeAdapter) GetTransactionReceipt(network *tokens.Network, txHash string) (*tokens.TxReceipt, error) {
	if a.getReceipt != nil {
		return a.getReceipt(txHash)
	}
	return &tokens.TxReceipt{TxHash: txHash, Success: true, BlockHeight: 100, Confirmations: 10}, nil
}

func (a *fakeAdapter) GetLatestBlockNumber(network *tokens.Network) (uint64, error) {
	return 110, nil
}

func (a *fakeAdapter) GetBlockEvents(network *tokens.Network, height uint64) (*tokens.BlockEvents, error) {
	return &tokens.BlockEvents{}, nil
}

func (a *fakeAdapter) GetPoolNonce(network *tokens.Network, address string) (uint64, error) {
	return a.poolNonce, nil
}

type memPersist struct {
	mu      sync.Mutex
	records map[string]*mongodb.MgoTransaction
}

func newMemPersist() *memPersist {
	return &memPersist{records: make(map[string]*mongodb.MgoTransaction)}
}

func (p *memPersist) FindTransaction(uniqToken string) (*mongodb.MgoTransaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if record, exist := p.records[uniqToken]; exist {
		clone := *record
		return &clone, nil
	}
	return nil, nil
}

func (p *memPersist) AddTransaction(mt *mongodb.MgoTransaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := *mt
	p.records[mt.Key] = &clone
	return nil
}

func (p *memPersist) UpdateTransaction(uniqToken string, updates map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	record := p.records[uniqToken]
	for key, value := range updates {
		switch key {
		case "procstate":
			record.ProcState = value.(string)
		case "status":
			record.Status = value.(mongodb.TxStatus)
		case "nonce":
			record.Nonce = value.(uint64)
		case "fee":
			record.Fee = value.(string)
		case "attemptcount":
			record.AttemptCount = value.(int)
		case "txhash":
			record.TxHash = value.(string)
		case "txheight":
			record.TxHeight = value.(uint64)
		case "txtime":
			record.TxTime = value.(uint64)
		case "feepaid":
			record.FeePaid = value.(string)
		case "memo":
			record.Memo = value.(string)
		}
	}
	return nil
}

func (p *memPersist) AppendPublishedTx(uniqToken, txHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	record := p.records[uniqToken]
	record.TxHash = txHash
	record.PublishedTxs = appendUnique(record.PublishedTxs, txHash)
	return nil
}

func (p *memPersist) get(uniqToken string) *mongodb.MgoTransaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[uniqToken]
}

var registerOnce sync.Once

var testAdapter = &fakeAdapter{}

func setupTest(t *testing.T) (*fakeAdapter, *memPersist, *Processor) {
	registerOnce.Do(func() {
		tokens.RegisterAdapter(testAdapter)
	})
	testAdapter.mu.Lock()
	testAdapter.estimateFee = nil
	testAdapter.getBalance = nil
	testAdapter.send = nil
	testAdapter.getReceipt = nil
	testAdapter.poolNonce = 5
	testAdapter.sendCalls = 0
	testAdapter.estimateRuns = 0
	testAdapter.mu.Unlock()

	tokens.SetNetworks([]*tokens.Network{{
		Name:          "testnet",
		Family:        testFamily,
		NativeToken:   "TST",
		Gateways:      []string{"http://localhost:1"},
		Confirmations: 3,
	}})

	persist := newMemPersist()
	ctrl := nonces.NewController(newNonceMemStore(), newNonceMemCache(), func(network, address string) (uint64, error) {
		return testAdapter.poolNonce, nil
	})
	opts := &Options{
		MaxPublishRetries:   3,
		PlusFeePercentage:   10,
		BalanceRetryCount:   2,
		BalanceRetryDelay:   time.Millisecond,
		ConfirmPollInterval: time.Millisecond,
		ConfirmPollWindow:   100 * time.Millisecond,
		ConfirmHorizon:      48 * time.Hour,
	}
	return testAdapter, persist, New(ctrl, persist, opts)
}

// minimal in-memory nonce store/cache, the full behavior is covered in
// package nonces
type nonceMemStore struct {
	mu       sync.Mutex
	reserved map[string]uint64
	next     uint64
	inited   bool
}

func newNonceMemStore() *nonceMemStore {
	return &nonceMemStore{reserved: make(map[string]uint64)}
}

func (s *nonceMemStore) FindReservedNonce(key string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nonce, exist := s.reserved[key]
	return nonce, exist, nil
}

func (s *nonceMemStore) AddReservedNonce(network, address, uniqToken string, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved[network+":"+address+":"+uniqToken] = nonce
	return nil
}

func (s *nonceMemStore) TryLock(key, leaseID string, ttl time.Duration) (bool, error) {
	return false, nil
}

func (s *nonceMemStore) Unlock(key, leaseID string) error { return nil }

type nonceMemCache struct {
	mu   sync.Mutex
	next map[string]uint64
}

func newNonceMemCache() *nonceMemCache {
	return &nonceMemCache{next: make(map[string]uint64)}
}

func (c *nonceMemCache) GetNextNonce(key string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, ok := c.next[key]
	return next, ok
}

func (c *nonceMemCache) SetNextNonce(key string, next uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next[key] = next
}

func lockArgs() *tokens.BuildTxArgs {
	return &tokens.BuildTxArgs{
		TxType:   tokens.HTLCLockTx,
		SwapID:   "0xc0ffee",
		Network:  "testnet",
		From:     "0xsolver",
		To:       "0xhtlc",
		Value:    big.NewInt(1000),
		Asset:    "TST",
		Hashlock: "ab",
		Timelock: time.Now().Unix() + 3600,
	}
}

func TestExecuteHappyPath(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	result, err := proc.Execute(lockArgs())
	require.NoError(t, err)
	assert.Equal(t, "0xpublished", result.TxHash)
	assert.False(t, result.AlreadyDone)
	assert.True(t, result.Receipt.Success)

	record := persist.get("0xc0ffee:HTLCLock")
	require.NotNil(t, record)
	assert.Equal(t, StateConfirmed, record.ProcState)
	assert.Equal(t, mongodb.TxCompleted, record.Status)
	assert.Equal(t, uint64(5), record.Nonce)
	assert.Equal(t, []string{"0xpublished"}, record.PublishedTxs)
	assert.Equal(t, 1, adapter.sendCalls)
}

func TestExecuteUnderpricedEscalatesFee(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	adapter.send = func() (string, error) {
		if adapter.sendCalls == 1 {
			return "", errors.New("replacement transaction underpriced")
		}
		return "0xbumped", nil
	}

	args := lockArgs()
	result, err := proc.Execute(args)
	require.NoError(t, err)
	assert.Equal(t, "0xbumped", result.TxHash)
	assert.Equal(t, 2, adapter.sendCalls)

	// fee escalated by 10 percent
	assert.Equal(t, int64(110), args.Fee.Legacy.GasPrice.Int64())

	record := persist.get("0xc0ffee:HTLCLock")
	assert.Equal(t, 2, record.AttemptCount)
	assert.Equal(t, []string{"0xbumped"}, record.PublishedTxs)
}

func TestExecuteTooManyRetries(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	adapter.send = func() (string, error) {
		return "", errors.New("tx underpriced")
	}

	_, err := proc.Execute(lockArgs())
	assert.Equal(t, ErrTooManyRetries, err)
	assert.Equal(t, 3, adapter.sendCalls)

	record := persist.get("0xc0ffee:HTLCLock")
	assert.Equal(t, StateFailed, record.ProcState)
	assert.Equal(t, mongodb.TxFailed, record.Status)
}

func TestExecuteProtocolOutcomeShortCircuits(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	adapter.estimateFee = func() (*tokens.Fee, error) {
		return nil, tokens.ErrHTLCAlreadyExists
	}

	result, err := proc.Execute(lockArgs())
	require.NoError(t, err)
	assert.True(t, result.AlreadyDone)
	assert.Equal(t, 0, adapter.sendCalls)

	record := persist.get("0xc0ffee:HTLCLock")
	assert.Equal(t, StateConfirmed, record.ProcState)
}

func TestExecuteFailedReceiptIsPermanent(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	adapter.getReceipt = func(txHash string) (*tokens.TxReceipt, error) {
		return &tokens.TxReceipt{TxHash: txHash, Success: false, BlockHeight: 100, Confirmations: 10}, nil
	}

	_, err := proc.Execute(lockArgs())
	assert.Equal(t, tokens.ErrTxOnChainFailed, err)

	record := persist.get("0xc0ffee:HTLCLock")
	assert.Equal(t, StateFailed, record.ProcState)
	assert.Equal(t, mongodb.TxFailed, record.Status)
}

func TestExecuteResumeReusesPinnedFeeAndNonce(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	// a prior attempt pinned fee and nonce, then the process crashed
	require.NoError(t, persist.AddTransaction(&mongodb.MgoTransaction{
		Key:       "0xc0ffee:HTLCLock",
		SwapID:    "0xc0ffee",
		Network:   "testnet",
		TxType:    "HTLCLock",
		From:      "0xsolver",
		Nonce:     77,
		Fee:       `{"asset":"TST","legacy":{"gasPrice":250,"gasLimit":21000}}`,
		ProcState: StateNonceReserved,
		Status:    mongodb.TxInitiated,
		InitTime:  time.Now().Unix(),
	}))

	args := lockArgs()
	result, err := proc.Execute(args)
	require.NoError(t, err)
	assert.Equal(t, "0xpublished", result.TxHash)

	// no re-estimation and the recorded nonce is reused verbatim
	assert.Equal(t, 0, adapter.estimateRuns)
	assert.Equal(t, uint64(77), *args.Nonce)
	assert.Equal(t, int64(250), args.Fee.Legacy.GasPrice.Int64())
}

func TestExecuteNotConfirmedIsRetryable(t *testing.T) {
	adapter, persist, proc := setupTest(t)

	adapter.getReceipt = func(txHash string) (*tokens.TxReceipt, error) {
		return nil, tokens.ErrTxNotFound
	}

	_, err := proc.Execute(lockArgs())
	assert.Equal(t, tokens.ErrTxNotConfirmed, err)

	// the published hash is never discarded
	record := persist.get("0xc0ffee:HTLCLock")
	assert.Equal(t, []string{"0xpublished"}, record.PublishedTxs)
	assert.Equal(t, StatePublished, record.ProcState)

	// a later receipt of that same hash completes the resumed action
	adapter.getReceipt = nil
	result, err := proc.Execute(lockArgs())
	require.NoError(t, err)
	assert.Equal(t, "0xpublished", result.TxHash)
}
