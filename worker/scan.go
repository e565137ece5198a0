package worker

import (
	"strings"
	"sync"
	"time"

	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/params"
	"github.com/crosslock/CrossChain-Solver/quote"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

const scanBlockParallel = 4

// StartScanJob start one event listener per configured network that
// carries an HTLC contract.
func StartScanJob() {
	for _, network := range tokens.GetAllNetworks() {
		if network.HTLCContract == "" {
			logWorker("scan", "skip network without htlc contract", "network", network.Name)
			continue
		}
		go startNetworkScanJob(network)
	}
}

func startNetworkScanJob(network *tokens.Network) {
	logWorker("scan", "start network scan job", "network", network.Name, "initialHeight", network.InitialHeight)
	scanInterval := time.Duration(params.GetScanIntervalSeconds()) * time.Second
	for {
		err := scanOnce(network)
		if err != nil {
			logWorkerError("scan", "scan round error", err, "network", network.Name)
		}
		restInJob(scanInterval)
	}
}

// scanOnce advance the cursor over all newly confirmed blocks. The
// cursor only moves past a range after every block in it was decoded
// and its events registered, a failed range is re-scanned next round.
func scanOnce(network *tokens.Network) error {
	_, adapter, err := tokens.GetNetworkAdapter(network.Name)
	if err != nil {
		return err
	}
	start := network.InitialHeight
	cursor, err := mongodb.FindBlockCursor(network.Name)
	if err == nil && cursor.Height >= start {
		start = cursor.Height + 1
	}
	latest, err := adapter.GetLatestBlockNumber(network)
	if err != nil {
		return err
	}
	if latest < network.Confirmations {
		return nil
	}
	confirmedHead := latest - network.Confirmations + 1
	if start > confirmedHead {
		return nil
	}
	ranges, err := tokens.GenerateBlockRanges(start, confirmedHead, params.GetScanChunkSize())
	if err != nil {
		return err
	}
	for _, blockRange := range ranges {
		events, errS := scanBlockRange(network, adapter, blockRange)
		if errS != nil {
			return errS
		}
		for _, event := range events.CommitEvents {
			processCommitEvent(network, event)
		}
		for _, event := range events.LockEvents {
			processLockEvent(network, event)
		}
		if errS = mongodb.UpdateBlockCursor(network.Name, blockRange.To); errS != nil {
			return errS
		}
		logWorkerTrace("scan", "scanned block range", "network", network.Name,
			"from", blockRange.From, "to", blockRange.To,
			"commits", len(events.CommitEvents), "locks", len(events.LockEvents))
	}
	return nil
}

// scanBlockRange fetch the events of every block in the range with a
// bounded number of blocks in flight. Any block failure fails the whole
// range so the cursor never skips a block.
func scanBlockRange(network *tokens.Network, adapter tokens.ChainAdapter, blockRange tokens.BlockRange) (*tokens.BlockEvents, error) {
	type blockResult struct {
		height uint64
		events *tokens.BlockEvents
		err    error
	}
	heights := make(chan uint64)
	results := make(chan *blockResult)

	var wg sync.WaitGroup
	for i := 0; i < scanBlockParallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for height := range heights {
				events, err := adapter.GetBlockEvents(network, height)
				results <- &blockResult{height: height, events: events, err: err}
			}
		}()
	}
	go func() {
		for height := blockRange.From; height <= blockRange.To; height++ {
			heights <- height
		}
		close(heights)
		wg.Wait()
		close(results)
	}()

	merged := &tokens.BlockEvents{}
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		merged.CommitEvents = append(merged.CommitEvents, res.events.CommitEvents...)
		merged.LockEvents = append(merged.LockEvents, res.events.LockEvents...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// processCommitEvent register a new swap for a deposit naming one of our
// managed accounts, when an active route serves the requested pair.
func processCommitEvent(network *tokens.Network, event *tokens.CommitEvent) {
	if !network.IsManagedAccount(event.Receiver) {
		logWorkerTrace("scan", "skip commit to unmanaged receiver",
			"network", network.Name, "commitID", event.CommitID, "receiver", event.Receiver)
		return
	}
	// the commit event carries no source asset field, deposits are
	// always in the source network's native coin
	srcToken := event.SrcAsset
	if srcToken == "" {
		srcToken = network.NativeToken
	}
	if !quote.HasRoute(network.Name, srcToken, event.DstNetwork, event.DstAsset) {
		logWorkerTrace("scan", "skip commit without active route",
			"network", network.Name, "commitID", event.CommitID,
			"dstNetwork", event.DstNetwork, "dstAsset", event.DstAsset)
		return
	}
	swap := &mongodb.MgoSwap{
		Key:         strings.ToLower(event.CommitID),
		CommitTx:    event.TxHash,
		SrcNetwork:  network.Name,
		SrcToken:    srcToken,
		DstNetwork:  event.DstNetwork,
		DstToken:    event.DstAsset,
		Depositor:   event.Sender,
		Receiver:    event.Receiver,
		DstAddress:  event.DstAddress,
		SrcAmount:   event.Amount.String(),
		SrcTimelock: event.Timelock,
		Status:      mongodb.SwapQuoting,
		ResumeAt:    now(),
		InitTime:    now(),
		Timestamp:   now(),
	}
	err := addSwap(swap)
	switch {
	case err == nil:
		logWorker("scan", "register new swap", "network", network.Name,
			"commitID", swap.Key, "amount", swap.SrcAmount, "dstNetwork", swap.DstNetwork)
	case mongodb.IsDupError(err):
		// already registered, scanning is idempotent
	default:
		logWorkerError("scan", "register swap error", err, "commitID", swap.Key)
	}
}

// processLockEvent record the depositor's source lock. The lock must
// carry the hashlock this solver generated, anything else is somebody
// else's contract or a griefing attempt. The observation is persisted
// as a durable flag because the cursor moves past this block either
// way: the lock regularly arrives while the saga is still confirming
// our own destination lock, and the event is never redelivered.
func processLockEvent(network *tokens.Network, event *tokens.LockEvent) {
	swap, err := findSwap(strings.ToLower(event.CommitID))
	if err != nil {
		return
	}
	switch swap.Status {
	case mongodb.SwapDstLocking, mongodb.SwapAwaitingLock:
	default:
		return
	}
	if !strings.EqualFold(strings.TrimPrefix(swap.Hashlock, "0x"), strings.TrimPrefix(event.Hashlock, "0x")) {
		logWorkerError("scan", "lock event hashlock mismatch", tokens.ErrWrongHashlock,
			"commitID", swap.Key, "want", swap.Hashlock, "got", event.Hashlock)
		return
	}
	if errU := updateSwapLockObserved(swap.Key, event.Timelock); errU != nil {
		logWorkerError("scan", "record lock observation error", errU, "commitID", swap.Key)
		return
	}
	// a swap already waiting is promoted right away, one still confirming
	// its destination lock is promoted by the saga on the flag
	if swap.Status == mongodb.SwapAwaitingLock {
		errU := updateSwapStatusIf(swap.Key, mongodb.SwapAwaitingLock, mongodb.SwapRedeeming, now(), "")
		if errU != nil && !mongodb.IsNotFoundError(errU) {
			logWorkerError("scan", "update swap status error", errU, "commitID", swap.Key)
			return
		}
	}
	logWorker("scan", "source lock observed",
		"network", network.Name, "commitID", swap.Key, "lockTx", event.TxHash)
}
