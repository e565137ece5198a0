// Package processor drives one logical on-chain action to a confirmed
// receipt under node flakiness, fee volatility and process restarts,
// without ever reusing another action's nonce or losing a submitted
// transaction.
package processor

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/nonces"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// processor state machine, persisted in the attempt record
const (
	StateNotStarted    = "NotStarted"
	StateFeeEstimated  = "FeeEstimated"
	StateNonceReserved = "NonceReserved"
	StateSigned        = "Signed"
	StatePublished     = "Published"
	StateConfirmed     = "Confirmed"
	StateFailed        = "PermanentlyFailed"
)

// Options tunables of the processor
type Options struct {
	MaxPublishRetries   int
	PlusFeePercentage   uint64
	BalanceRetryCount   int
	BalanceRetryDelay   time.Duration
	ConfirmPollInterval time.Duration
	ConfirmPollWindow   time.Duration
	ConfirmHorizon      time.Duration
}

// DefaultOptions the defaults used by the workers
func DefaultOptions() *Options {
	return &Options{
		MaxPublishRetries:   10,
		PlusFeePercentage:   10,
		BalanceRetryCount:   10,
		BalanceRetryDelay:   10 * time.Second,
		ConfirmPollInterval: 5 * time.Second,
		ConfirmPollWindow:   3 * time.Minute,
		ConfirmHorizon:      48 * time.Hour, // slow chains
	}
}

// Result outcome of one Execute call
type Result struct {
	TxHash      string
	Receipt     *tokens.TxReceipt
	AlreadyDone bool // protocol outcome, desired on-chain state already held
}

// Processor executes logical actions. Safe for concurrent use, each
// action is independent.
type Processor struct {
	nonceCtrl *nonces.Controller
	persist   Persist
	opts      *Options
}

// New new processor
func New(nonceCtrl *nonces.Controller, persist Persist, opts *Options) *Processor {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Processor{nonceCtrl: nonceCtrl, persist: persist, opts: opts}
}

// Execute run one logical action to confirmation. Transient conditions
// surface as retryable errors so the caller re-enqueues the same action,
// which resumes from the persisted record instead of starting over.
func (p *Processor) Execute(args *tokens.BuildTxArgs) (*Result, error) {
	network, adapter, err := tokens.GetNetworkAdapter(args.Network)
	if err != nil {
		return nil, err
	}
	uniqToken := args.UniquenessToken()
	record, err := p.loadOrCreateRecord(uniqToken, args)
	if err != nil {
		return nil, err
	}
	switch record.ProcState {
	case StateConfirmed:
		return &Result{TxHash: record.TxHash, AlreadyDone: true}, nil
	case StateFailed:
		return nil, ErrPermanentlyFailed
	}
	if record.InitAge() > p.opts.ConfirmHorizon {
		p.markFailed(uniqToken, "confirmation horizon expired")
		return nil, ErrConfirmExpired
	}

	p.restorePinned(record, args)

	// build is pure and replayable, run it on every entry
	rawTx, err := adapter.BuildTransaction(network, args)
	if err != nil {
		return p.handleClassified(uniqToken, network, adapter, record, err)
	}

	if args.Fee == nil {
		fee, errf := adapter.EstimateFee(network, rawTx)
		if errf != nil {
			return p.handleClassified(uniqToken, network, adapter, record, errf)
		}
		args.Fee = fee
		if err = p.pinFee(uniqToken, fee); err != nil {
			return nil, err
		}
	}

	if err = p.ensureBalance(network, adapter, args); err != nil {
		return nil, err
	}

	if args.Nonce == nil {
		nonce, errn := p.nonceCtrl.ReserveNonce(args.Network, args.From, uniqToken)
		if errn != nil {
			return nil, errn
		}
		args.Nonce = &nonce
		if err = p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
			"nonce": nonce, "procstate": StateNonceReserved,
		}); err != nil {
			return nil, err
		}
	}

	return p.publishLoop(uniqToken, network, adapter, record, args)
}

// publishLoop sign and publish with bounded fee escalation, then confirm.
func (p *Processor) publishLoop(uniqToken string, network *tokens.Network, adapter tokens.ChainAdapter, record *mongodb.MgoTransaction, args *tokens.BuildTxArgs) (*Result, error) {
	// resuming an action that already published: look for a landed
	// receipt before spending another attempt
	if record.ProcState == StatePublished && len(record.PublishedTxs) > 0 {
		if res, err := p.pollReceipts(network, adapter, record, uniqToken, p.opts.ConfirmPollInterval); err == nil {
			return res, nil
		} else if !tokens.IsTransientError(err) {
			return nil, err
		}
	}

	attempt := record.AttemptCount
	for {
		if attempt >= p.opts.MaxPublishRetries {
			// a previously published tx may still land, check before
			// declaring failure
			if len(record.PublishedTxs) > 0 {
				if res, err := p.pollReceipts(network, adapter, record, uniqToken, p.opts.ConfirmPollInterval); err == nil {
					return res, nil
				}
			}
			p.markFailed(uniqToken, "too many publish retries")
			return nil, ErrTooManyRetries
		}

		rawTx, err := adapter.BuildTransaction(network, args)
		if err != nil {
			return p.handleClassified(uniqToken, network, adapter, record, err)
		}
		signedTx, txHash, err := adapter.SignTransaction(network, rawTx, args.From)
		if err != nil {
			return nil, err // signer is external, let the caller retry
		}
		if err = p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
			"procstate": StateSigned,
		}); err != nil {
			return nil, err
		}

		sentHash, err := adapter.SendTransaction(network, signedTx)
		if err == nil {
			if sentHash != "" {
				txHash = sentHash
			}
			if err = p.persist.AppendPublishedTx(uniqToken, txHash); err != nil {
				return nil, err
			}
			record.PublishedTxs = appendUnique(record.PublishedTxs, txHash)
			record.TxHash = txHash
			if err = p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
				"procstate": StatePublished, "attemptcount": attempt + 1,
			}); err != nil {
				return nil, err
			}
			return p.pollReceipts(network, adapter, record, uniqToken, p.opts.ConfirmPollWindow)
		}

		switch classify(err) {
		case classUnderpriced:
			escalated, errE := tokens.EscalateFee(args.Fee, p.opts.PlusFeePercentage)
			if errE != nil {
				return nil, errE
			}
			args.Fee = escalated
			attempt++
			log.Warn("[processor] tx underpriced, escalate fee and resign",
				"uniqToken", uniqToken, "attempt", attempt, "feeAmount", escalated.Amount())
			if errP := p.pinFee(uniqToken, escalated); errP != nil {
				return nil, errP
			}
			if errP := p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
				"attemptcount": attempt,
			}); errP != nil {
				return nil, errP
			}
			continue
		case classNonceStale:
			// an earlier publish attempt of this same action may have
			// landed under our reserved nonce
			if len(record.PublishedTxs) > 0 {
				return p.pollReceipts(network, adapter, record, uniqToken, p.opts.ConfirmPollWindow)
			}
			return nil, tokens.ErrNonceTooLow
		case classProtocolOutcome:
			return p.handleClassified(uniqToken, network, adapter, record, err)
		case classTransient:
			return nil, err
		default:
			p.markFailed(uniqToken, err.Error())
			return nil, ErrPermanentlyFailed
		}
	}
}

// pollReceipts look for a receipt of ANY published hash of this action,
// any one of them may have landed. Returns a retryable error when none
// is found within the window.
func (p *Processor) pollReceipts(network *tokens.Network, adapter tokens.ChainAdapter, record *mongodb.MgoTransaction, uniqToken string, window time.Duration) (*Result, error) {
	deadline := time.Now().Add(window)
	for {
		for _, txHash := range record.PublishedTxs {
			receipt, err := adapter.GetTransactionReceipt(network, txHash)
			if err != nil {
				continue
			}
			if receipt.Confirmations < network.Confirmations {
				continue
			}
			if !receipt.Success {
				// an on-chain failure is a real outcome, never swallowed
				p.markFailed(uniqToken, "on chain execution failed: "+txHash)
				return nil, tokens.ErrTxOnChainFailed
			}
			updates := map[string]interface{}{
				"procstate": StateConfirmed,
				"status":    mongodb.TxCompleted,
				"txhash":    txHash,
				"txheight":  receipt.BlockHeight,
				"txtime":    receipt.BlockTime,
			}
			if receipt.FeePaid != nil {
				updates["feepaid"] = receipt.FeePaid.String()
			}
			if err = p.persist.UpdateTransaction(uniqToken, updates); err != nil {
				return nil, err
			}
			log.Info("[processor] action confirmed", "uniqToken", uniqToken, "txHash", txHash, "height", receipt.BlockHeight)
			return &Result{TxHash: txHash, Receipt: receipt}, nil
		}
		if time.Now().After(deadline) {
			return nil, tokens.ErrTxNotConfirmed
		}
		time.Sleep(p.opts.ConfirmPollInterval)
	}
}

// handleClassified decide what a classified adapter error means for the
// action as a whole.
func (p *Processor) handleClassified(uniqToken string, network *tokens.Network, adapter tokens.ChainAdapter, record *mongodb.MgoTransaction, err error) (*Result, error) {
	switch classify(err) {
	case classProtocolOutcome:
		// the desired state may already hold, check actual on-chain
		// state before deciding
		if len(record.PublishedTxs) > 0 {
			if res, errP := p.pollReceipts(network, adapter, record, uniqToken, time.Second); errP == nil {
				res.AlreadyDone = true
				return res, nil
			}
		}
		if errU := p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
			"procstate": StateConfirmed,
			"status":    mongodb.TxCompleted,
			"memo":      "already done: " + err.Error(),
		}); errU != nil {
			return nil, errU
		}
		log.Info("[processor] action already done", "uniqToken", uniqToken, "outcome", err)
		return &Result{TxHash: record.TxHash, AlreadyDone: true}, nil
	case classTransient, classUnderpriced, classNonceStale:
		return nil, err
	case classFatalConfig:
		log.Error("[processor] fatal configuration error", "uniqToken", uniqToken, "err", err)
		return nil, err
	default:
		p.markFailed(uniqToken, err.Error())
		return nil, ErrPermanentlyFailed
	}
}

// ensureBalance the from address must hold the transfer amount in the
// transfer asset plus the fee in the fee asset, which may differ.
// Insufficient balance is an external condition expected to resolve.
func (p *Processor) ensureBalance(network *tokens.Network, adapter tokens.ChainAdapter, args *tokens.BuildTxArgs) error {
	for i := 0; i < p.opts.BalanceRetryCount; i++ {
		enough, err := p.checkBalanceOnce(network, adapter, args)
		if err != nil {
			return err
		}
		if enough {
			return nil
		}
		log.Warn("[processor] balance not yet sufficient", "network", args.Network, "from", args.From, "asset", args.Asset)
		time.Sleep(p.opts.BalanceRetryDelay)
	}
	return ErrBalanceShort
}

func (p *Processor) checkBalanceOnce(network *tokens.Network, adapter tokens.ChainAdapter, args *tokens.BuildTxArgs) (bool, error) {
	feeAsset := network.NativeToken
	if args.Fee != nil && args.Fee.Asset != "" {
		feeAsset = args.Fee.Asset
	}
	transferAsset := args.Asset
	if transferAsset == "" {
		transferAsset = network.NativeToken
	}
	// transfer asset and fee asset may be the same, sum the needs then
	need := make(map[string]*big.Int, 2)
	addNeed := func(asset string, amount *big.Int) {
		if prev, exist := need[asset]; exist {
			need[asset] = new(big.Int).Add(prev, amount)
		} else {
			need[asset] = new(big.Int).Set(amount)
		}
	}
	if args.Value != nil && args.Value.Sign() > 0 {
		addNeed(transferAsset, args.Value)
	}
	if args.Fee != nil {
		addNeed(feeAsset, args.Fee.Amount())
	}
	for asset, total := range need {
		balance, err := adapter.GetBalance(network, args.From, asset)
		if err != nil {
			return false, err
		}
		if balance.Cmp(total) < 0 {
			return false, nil
		}
	}
	return true, nil
}

func (p *Processor) loadOrCreateRecord(uniqToken string, args *tokens.BuildTxArgs) (*mongodb.MgoTransaction, error) {
	record, err := p.persist.FindTransaction(uniqToken)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	value := "0"
	if args.Value != nil {
		value = args.Value.String()
	}
	record = &mongodb.MgoTransaction{
		Key:       uniqToken,
		SwapID:    args.SwapID,
		Network:   args.Network,
		TxType:    string(args.TxType),
		From:      args.From,
		To:        args.To,
		Value:     value,
		ProcState: StateNotStarted,
		Status:    mongodb.TxInitiated,
		InitTime:  time.Now().Unix(),
		Timestamp: time.Now().Unix(),
	}
	if err = p.persist.AddTransaction(record); err != nil {
		return nil, err
	}
	return record, nil
}

// restorePinned recover the fee and nonce pinned on a prior attempt so a
// crash never re-estimates a pinned fee or draws a second nonce.
func (p *Processor) restorePinned(record *mongodb.MgoTransaction, args *tokens.BuildTxArgs) {
	if args.Fee == nil && record.Fee != "" {
		var fee tokens.Fee
		if err := json.Unmarshal([]byte(record.Fee), &fee); err == nil {
			args.Fee = &fee
		}
	}
	if args.Nonce == nil && record.ProcState != StateNotStarted && record.ProcState != StateFeeEstimated {
		nonce := record.Nonce
		args.Nonce = &nonce
	}
}

func (p *Processor) pinFee(uniqToken string, fee *tokens.Fee) error {
	encoded, err := json.Marshal(fee)
	if err != nil {
		return err
	}
	return p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
		"fee": string(encoded), "procstate": StateFeeEstimated,
	})
}

func (p *Processor) markFailed(uniqToken, memo string) {
	if err := p.persist.UpdateTransaction(uniqToken, map[string]interface{}{
		"procstate": StateFailed,
		"status":    mongodb.TxFailed,
		"memo":      memo,
	}); err != nil {
		log.Error("[processor] mark failed error", "uniqToken", uniqToken, "err", err)
	}
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}
