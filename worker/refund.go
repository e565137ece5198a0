package worker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/params"
	"github.com/crosslock/CrossChain-Solver/tools"
)

var (
	refundJobStarter sync.Once

	// a swap counts as stuck when its lock stays unredeemed and
	// unrefunded this long past its destination timelock
	stuckAlertGrace = int64(3600)

	alertedSwaps   = make(map[string]struct{})
	alertedSwapsMu sync.Mutex
)

// StartRefundJob the safety net: periodically sweep for swaps holding a
// confirmed lock transaction but neither a redeem nor a refund, and make
// them due for the refund step again. Catches swaps whose state rows
// were rescheduled into the far future or mutated by operator mistakes.
func StartRefundJob() {
	refundJobStarter.Do(func() {
		logWorker("refund", "start refund sweep job")
		initAlerting()
		for {
			sweepNonRefundedSwaps()
			restInJob(restIntervalInRefundJob)
		}
	})
}

func initAlerting() {
	alert := params.GetConfig().Alert
	if alert == nil {
		logWorker("refund", "email alerting disabled, no 'Alert' config")
		return
	}
	tools.InitEmailConfig(alert.Server, alert.Port, alert.From, params.GetIdentifier(), alert.FromPassword)
	logWorker("refund", "email alerting enabled", "to", strings.Join(alert.To, ","))
}

func sweepNonRefundedSwaps() {
	septime := getSepTimeInFind(maxSwapLifetime)
	swaps, err := mongodb.FindNonRefundedSwaps(septime)
	if err != nil {
		logWorkerError("refund", "find non refunded swaps error", err)
		return
	}
	if len(swaps) == 0 {
		return
	}
	logWorker("refund", "find non refunded swaps", "count", len(swaps))
	for _, swap := range swaps {
		processNonRefundedSwap(swap)
	}
}

func processNonRefundedSwap(swap *mongodb.MgoSwap) {
	if swap.Status != mongodb.SwapRefunding {
		// the saga owns the swap until its lock turns reclaimable, a
		// healthy swap still waiting for the counterpart must never be
		// pushed onto the refund path
		if swap.DstTimelock == 0 || now() < swap.DstTimelock {
			return
		}
		logWorker("refund", "force swap to refunding", "commitID", swap.Key, "status", swap.Status.String())
		advanceSwap(swap, mongodb.SwapRefunding, "refund sweep")
		return
	}
	// already refunding, make sure it is due now and not parked
	rescheduleSwap(swap, 0, "")
	maybeAlertStuckSwap(swap)
}

// maybeAlertStuckSwap email the operators once per swap when a refund
// stays unsettled long past its timelock.
func maybeAlertStuckSwap(swap *mongodb.MgoSwap) {
	if !tools.IsEmailEnabled() {
		return
	}
	if swap.DstTimelock == 0 || now() < swap.DstTimelock+stuckAlertGrace {
		return
	}
	alertedSwapsMu.Lock()
	_, alreadySent := alertedSwaps[swap.Key]
	if !alreadySent {
		alertedSwaps[swap.Key] = struct{}{}
	}
	alertedSwapsMu.Unlock()
	if alreadySent {
		return
	}
	alert := params.GetConfig().Alert
	subject := alert.Subject
	if subject == "" {
		subject = "locked funds need attention"
	}
	content := fmt.Sprintf(
		"swap %v holds a confirmed lock on %v that is neither redeemed nor refunded.\n"+
			"status: %v\ndst timelock: %v\namount: %v %v\n",
		swap.Key, swap.DstNetwork, swap.Status.String(), swap.DstTimelock, swap.DstAmount, swap.DstToken)
	if err := tools.SendEmail(alert.To, nil, subject, content); err != nil {
		logWorkerError("refund", "send alert email error", err, "commitID", swap.Key)
		alertedSwapsMu.Lock()
		delete(alertedSwaps, swap.Key)
		alertedSwapsMu.Unlock()
		return
	}
	logWorker("refund", "sent stuck swap alert email", "commitID", swap.Key)
}
