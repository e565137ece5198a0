package worker

import (
	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/processor"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// txExecutor what the saga steps need from the transaction processor
type txExecutor interface {
	Execute(args *tokens.BuildTxArgs) (*processor.Result, error)
}

var txProcessor txExecutor

// indirections over the swap collection so the event and sweep paths
// can be driven against an in-memory store in tests
var (
	addSwap                = mongodb.AddSwap
	findSwap               = mongodb.FindSwap
	updateSwapStatusIf     = mongodb.UpdateSwapStatusIf
	updateSwapQuote        = mongodb.UpdateSwapQuote
	updateSwapHashlock     = mongodb.UpdateSwapHashlock
	updateSwapTimelocks    = mongodb.UpdateSwapTimelocks
	updateSwapLockObserved = mongodb.UpdateSwapLockObserved
)
