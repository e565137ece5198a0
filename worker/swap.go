package worker

import (
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/processor"
	"github.com/crosslock/CrossChain-Solver/quote"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

var (
	swapTaskChanSize = 100
	swapTaskWorkers  = 8

	// retry delays when a step hit a transient condition
	retryDelay        = int64(60)
	awaitRecheck      = int64(30)
	timelockSafetyGap = int64(600)

	inflightSwaps   = make(map[string]struct{})
	inflightSwapsMu sync.Mutex
)

// steppable statuses, polled in this order
var steppableStatuses = []mongodb.SwapStatus{
	mongodb.SwapQuoting,
	mongodb.SwapDstLocking,
	mongodb.SwapAwaitingLock,
	mongodb.SwapRedeeming,
	mongodb.SwapRefunding,
}

// StartSwapJob poll due swaps and dispatch one saga step each to a
// bounded worker pool. A swap is never stepped by two workers at once.
func StartSwapJob() {
	logWorker("swap", "start swap saga job")
	taskChan := make(chan *mongodb.MgoSwap, swapTaskChanSize)
	for i := 0; i < swapTaskWorkers; i++ {
		go func() {
			for swap := range taskChan {
				stepSwap(swap)
				markNotInflight(swap.Key)
			}
		}()
	}
	for {
		for _, status := range steppableStatuses {
			septime := getSepTimeInFind(maxSwapLifetime)
			swaps, err := mongodb.FindSwapsWithStatus(status, septime)
			if err != nil {
				logWorkerError("swap", "find due swaps error", err, "status", status.String())
				continue
			}
			for _, swap := range swaps {
				if markInflight(swap.Key) {
					taskChan <- swap
				}
			}
		}
		restInJob(restIntervalInSwapJob)
	}
}

func markInflight(key string) bool {
	inflightSwapsMu.Lock()
	defer inflightSwapsMu.Unlock()
	if _, exist := inflightSwaps[key]; exist {
		return false
	}
	inflightSwaps[key] = struct{}{}
	return true
}

func markNotInflight(key string) {
	inflightSwapsMu.Lock()
	defer inflightSwapsMu.Unlock()
	delete(inflightSwaps, key)
}

// stepSwap run exactly one saga step and persist the outcome before
// returning. Every branch ends in a status write so the swap is always
// either due again or terminal.
func stepSwap(swap *mongodb.MgoSwap) {
	switch swap.Status {
	case mongodb.SwapQuoting:
		processQuoting(swap)
	case mongodb.SwapDstLocking:
		processDstLocking(swap)
	case mongodb.SwapAwaitingLock:
		processAwaitingLock(swap)
	case mongodb.SwapRedeeming:
		processRedeeming(swap)
	case mongodb.SwapRefunding:
		processRefunding(swap)
	}
}

// processQuoting price the swap and commit to it by generating and
// storing the hashlock. No funds have moved yet, every failure here
// fails the swap closed.
func processQuoting(swap *mongodb.MgoSwap) {
	srcAmount, ok := new(big.Int).SetString(swap.SrcAmount, 10)
	if !ok {
		failSwap(swap, "bad source amount "+swap.SrcAmount)
		return
	}
	result, err := quote.GetQuote(swap.SrcNetwork, swap.SrcToken, swap.DstNetwork, swap.DstToken, srcAmount)
	if err != nil {
		failSwap(swap, "quote rejected: "+err.Error())
		return
	}
	if err = updateSwapQuote(swap.Key, result.DstAmount.String(), result.FeeAmount.String()); err != nil {
		rescheduleSwap(swap, retryDelay, "store quote error: "+err.Error())
		return
	}
	hashlock, err := tokens.GenerateHashlock()
	if err != nil {
		rescheduleSwap(swap, retryDelay, "generate hashlock error: "+err.Error())
		return
	}
	// the secret must be durable before any lock references its hash
	if err = updateSwapHashlock(swap.Key, hashlock.Hash, hashlock.Secret); err != nil {
		rescheduleSwap(swap, retryDelay, "store hashlock error: "+err.Error())
		return
	}
	dstTimelock := dstLockTimelock(swap)
	if err = updateSwapTimelocks(swap.Key, 0, dstTimelock); err != nil {
		rescheduleSwap(swap, retryDelay, "store timelock error: "+err.Error())
		return
	}
	logWorker("swap", "swap quoted", "commitID", swap.Key,
		"dstAmount", result.DstAmount, "fee", result.FeeAmount)
	advanceSwap(swap, mongodb.SwapDstLocking, "")
}

// dstLockTimelock the solver's own lock must expire comfortably before
// the depositor's, otherwise the depositor could redeem ours and refund
// theirs.
func dstLockTimelock(swap *mongodb.MgoSwap) int64 {
	candidate := swap.SrcTimelock - timelockSafetyGap
	floor := now() + timelockSafetyGap
	if candidate < floor {
		candidate = floor
	}
	return candidate
}

// processDstLocking lock the quoted amount on the destination chain
// under our hashlock.
func processDstLocking(swap *mongodb.MgoSwap) {
	network := tokens.GetNetwork(swap.DstNetwork)
	if network == nil {
		failSwap(swap, "destination network not configured")
		return
	}
	account := network.GetManagedAccount(tokens.RolePrimary)
	if account == nil {
		failSwap(swap, "no primary account on destination network")
		return
	}
	dstAmount, ok := new(big.Int).SetString(swap.DstAmount, 10)
	if !ok {
		failSwap(swap, "bad destination amount "+swap.DstAmount)
		return
	}
	// a token lock pulls from our balance, the contract needs allowance first
	dstToken := network.GetToken(swap.DstToken)
	if dstToken != nil && !dstToken.IsNative() {
		approveArgs := &tokens.BuildTxArgs{
			TxType:  tokens.ApproveTx,
			SwapID:  swap.Key,
			Network: swap.DstNetwork,
			From:    account.Address,
			To:      network.HTLCContract,
			Value:   dstAmount,
			Asset:   swap.DstToken,
		}
		if _, err := txProcessor.Execute(approveArgs); err != nil {
			rescheduleSwap(swap, retryDelay, "destination approve retry: "+err.Error())
			return
		}
	}
	args := &tokens.BuildTxArgs{
		TxType:   tokens.HTLCLockTx,
		SwapID:   swap.Key,
		Network:  swap.DstNetwork,
		From:     account.Address,
		To:       swap.DstAddress,
		Value:    dstAmount,
		Asset:    swap.DstToken,
		Hashlock: swap.Hashlock,
		Timelock: swap.DstTimelock,
	}
	applyRouteReward(swap, args)
	result, err := txProcessor.Execute(args)
	switch {
	case err == nil:
		logWorker("swap", "destination lock confirmed", "commitID", swap.Key, "txHash", result.TxHash)
		advanceSwap(swap, mongodb.SwapAwaitingLock, "")
	case errors.Is(err, processor.ErrPermanentlyFailed),
		errors.Is(err, tokens.ErrTxOnChainFailed),
		errors.Is(err, processor.ErrTooManyRetries):
		// the lock reverted or never published, nothing is at stake yet
		failSwap(swap, "destination lock failed: "+err.Error())
	case errors.Is(err, processor.ErrConfirmExpired):
		// a published lock may still land past the horizon, route the
		// swap to refunding so the locked funds stay reclaimable
		advanceSwap(swap, mongodb.SwapRefunding, "destination lock expired unconfirmed")
	default:
		rescheduleSwap(swap, retryDelay, "destination lock retry: "+err.Error())
	}
}

// applyRouteReward attach the route's counterpart incentive to the
// destination lock. The reward window never outlives the lock itself.
func applyRouteReward(swap *mongodb.MgoSwap, args *tokens.BuildTxArgs) {
	route := quote.FindRoute(swap.SrcNetwork, swap.SrcToken, swap.DstNetwork, swap.DstToken)
	if route == nil || route.LockReward == nil || route.LockReward.Sign() <= 0 {
		return
	}
	rewardTimelock := now() + route.RewardWindow
	if swap.DstTimelock != 0 && rewardTimelock > swap.DstTimelock {
		rewardTimelock = swap.DstTimelock
	}
	args.Reward = route.LockReward
	args.RewardTimelock = rewardTimelock
}

// processAwaitingLock promote the swap to SwapRedeeming once the
// listener recorded the depositor's source lock, the observation may
// predate this step by any amount of time. Otherwise watch the clock:
// once our destination lock is refundable and no source lock arrived,
// stop waiting and reclaim.
func processAwaitingLock(swap *mongodb.MgoSwap) {
	if swap.LockObserved {
		logWorker("swap", "source lock observed, swap is redeemable", "commitID", swap.Key)
		advanceSwap(swap, mongodb.SwapRedeeming, "")
		return
	}
	if swap.DstTimelock != 0 && now() >= swap.DstTimelock {
		logWorker("swap", "no source lock before timelock, refunding", "commitID", swap.Key)
		advanceSwap(swap, mongodb.SwapRefunding, "source lock never arrived")
		return
	}
	if swap.LockSigRequested {
		submitSourceLock(swap)
	}
	rescheduleSwap(swap, awaitRecheck, "")
}

// submitSourceLock place the depositor's source lock on their behalf.
// The depositor pre-authorized the lock at commit time and asked us to
// pay its gas through the status API, the reward in our destination
// lock compensates the submission. Outcomes are not persisted here, the
// listener's lock observation is the single source of truth for
// promoting the swap.
func submitSourceLock(swap *mongodb.MgoSwap) {
	args := &tokens.BuildTxArgs{
		TxType:   tokens.HTLCAddLockSigTx,
		SwapID:   swap.Key,
		Network:  swap.SrcNetwork,
		From:     swap.Receiver,
		Timelock: swap.LockSigTimelock,
	}
	result, err := txProcessor.Execute(args)
	switch {
	case err == nil:
		logWorker("swap", "submitted source lock for depositor", "commitID", swap.Key, "txHash", result.TxHash)
	case tokens.IsTransientError(err):
		logWorkerTrace("swap", "source lock submission retry", "commitID", swap.Key, "err", err)
	default:
		logWorkerError("swap", "source lock submission failed", err, "commitID", swap.Key)
	}
}

// processRedeeming claim the depositor's source lock by revealing the
// secret. This is the step that irreversibly earns the swap.
func processRedeeming(swap *mongodb.MgoSwap) {
	network := tokens.GetNetwork(swap.SrcNetwork)
	if network == nil {
		failSwap(swap, "source network not configured")
		return
	}
	args := &tokens.BuildTxArgs{
		TxType:  tokens.HTLCRedeemTx,
		SwapID:  swap.Key,
		Network: swap.SrcNetwork,
		From:    swap.Receiver,
		Asset:   swap.SrcToken,
		Secret:  normalizeBytes32(swap.Secret),
	}
	result, err := txProcessor.Execute(args)
	switch {
	case err == nil:
		memo := ""
		if result.AlreadyDone {
			memo = "already redeemed"
		}
		logWorker("swap", "source redeem confirmed", "commitID", swap.Key, "txHash", result.TxHash)
		advanceSwap(swap, mongodb.SwapCompleted, memo)
	case errors.Is(err, processor.ErrPermanentlyFailed),
		errors.Is(err, tokens.ErrTxOnChainFailed),
		errors.Is(err, processor.ErrTooManyRetries),
		errors.Is(err, processor.ErrConfirmExpired):
		// could not claim the source funds, reclaim our destination lock
		logWorkerError("swap", "source redeem failed, refunding", err, "commitID", swap.Key)
		advanceSwap(swap, mongodb.SwapRefunding, "redeem failed: "+err.Error())
	default:
		rescheduleSwap(swap, retryDelay, "source redeem retry: "+err.Error())
	}
}

// processRefunding reclaim our destination lock after its timelock.
func processRefunding(swap *mongodb.MgoSwap) {
	network := tokens.GetNetwork(swap.DstNetwork)
	if network == nil {
		failSwap(swap, "destination network not configured")
		return
	}
	account := network.GetManagedAccount(tokens.RolePrimary)
	if account == nil {
		failSwap(swap, "no primary account on destination network")
		return
	}
	if swap.DstTimelock != 0 && now() < swap.DstTimelock {
		// not refundable yet, come back when the timelock passes
		rescheduleSwap(swap, swap.DstTimelock-now()+1, "")
		return
	}
	args := &tokens.BuildTxArgs{
		TxType:  tokens.HTLCRefundTx,
		SwapID:  swap.Key,
		Network: swap.DstNetwork,
		From:    account.Address,
		Asset:   swap.DstToken,
	}
	result, err := txProcessor.Execute(args)
	switch {
	case err == nil:
		memo := ""
		if result.AlreadyDone {
			// the depositor redeemed our lock with the revealed secret,
			// the swap actually completed
			memo = "destination lock already claimed"
		}
		logWorker("swap", "destination refund settled", "commitID", swap.Key, "txHash", result.TxHash, "memo", memo)
		advanceSwap(swap, mongodb.SwapRefunded, memo)
	case errors.Is(err, tokens.ErrInvalidTimelock):
		rescheduleSwap(swap, awaitRecheck, "refund before timelock")
	default:
		rescheduleSwap(swap, retryDelay, "destination refund retry: "+err.Error())
	}
}

// status writes are conditional on the status the caller stepped from,
// so a worker holding a stale row can never overwrite a transition made
// by the listener or another job in the meantime.
func advanceSwap(swap *mongodb.MgoSwap, status mongodb.SwapStatus, memo string) {
	err := updateSwapStatusIf(swap.Key, swap.Status, status, now(), memo)
	switch {
	case err == nil:
	case mongodb.IsNotFoundError(err):
		logWorkerTrace("swap", "swap moved by a concurrent writer", "commitID", swap.Key)
	default:
		logWorkerError("swap", "advance swap status error", err,
			"commitID", swap.Key, "status", status.String())
	}
}

func rescheduleSwap(swap *mongodb.MgoSwap, delay int64, memo string) {
	if memo != "" {
		logWorker("swap", "reschedule swap", "commitID", swap.Key, "delay", delay, "memo", memo)
	}
	err := updateSwapStatusIf(swap.Key, swap.Status, swap.Status, now()+delay, memo)
	switch {
	case err == nil:
	case mongodb.IsNotFoundError(err):
		logWorkerTrace("swap", "swap moved by a concurrent writer", "commitID", swap.Key)
	default:
		logWorkerError("swap", "reschedule swap error", err, "commitID", swap.Key)
	}
}

func failSwap(swap *mongodb.MgoSwap, memo string) {
	logWorkerError("swap", "swap failed", errors.New(memo), "commitID", swap.Key)
	err := updateSwapStatusIf(swap.Key, swap.Status, mongodb.SwapFailed, now(), memo)
	switch {
	case err == nil:
	case mongodb.IsNotFoundError(err):
		logWorkerTrace("swap", "swap moved by a concurrent writer", "commitID", swap.Key)
	default:
		logWorkerError("swap", "mark swap failed error", err, "commitID", swap.Key)
	}
}

func normalizeBytes32(hexStr string) string {
	if hexStr == "" {
		return hexStr
	}
	if !strings.HasPrefix(hexStr, "0x") {
		return "0x" + hexStr
	}
	return hexStr
}
