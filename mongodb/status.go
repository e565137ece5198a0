package mongodb

import (
	"fmt"
)

// -----------------------------------------------
// swap status change graph
//
// SwapQuoting -> |- SwapFailed (no active route)
//                |- SwapDstLocking (hashlock generated and stored first)
// SwapDstLocking -> |- SwapAwaitingLock (dst lock tx confirmed)
//                   |- SwapRefunding (lock expired unconfirmed, may still land)
//                   |- SwapFailed (failed closed, no funds moved)
// SwapAwaitingLock -> |- SwapRedeeming (source lock observed by listener)
//                     |- SwapRefunding (timelock passed without lock)
// SwapRedeeming -> |- SwapCompleted
//                  |- SwapRefunding (redeem failed past the timelock)
// SwapRefunding -> SwapRefunded
// -----------------------------------------------

// SwapStatus swap status
type SwapStatus uint16

// swap status values
const (
	SwapQuoting      SwapStatus = iota // 0
	SwapDstLocking                     // 1
	SwapAwaitingLock                   // 2
	SwapRedeeming                      // 3
	SwapCompleted                      // 4
	SwapRefunding                      // 5
	SwapRefunded                       // 6

	SwapFailed SwapStatus = 255
)

// IsTerminal no further saga step will run for this swap
func (status SwapStatus) IsTerminal() bool {
	switch status {
	case SwapCompleted, SwapRefunded, SwapFailed:
		return true
	default:
		return false
	}
}

func (status SwapStatus) String() string {
	switch status {
	case SwapQuoting:
		return "SwapQuoting"
	case SwapDstLocking:
		return "SwapDstLocking"
	case SwapAwaitingLock:
		return "SwapAwaitingLock"
	case SwapRedeeming:
		return "SwapRedeeming"
	case SwapCompleted:
		return "SwapCompleted"
	case SwapRefunding:
		return "SwapRefunding"
	case SwapRefunded:
		return "SwapRefunded"
	case SwapFailed:
		return "SwapFailed"
	default:
		return fmt.Sprintf("unknown swap status %d", status)
	}
}

// TxStatus transaction status
type TxStatus uint16

// transaction status values
const (
	TxInitiated TxStatus = iota // 0
	TxCompleted                 // 1
	TxFailed                    // 2
)

func (status TxStatus) String() string {
	switch status {
	case TxInitiated:
		return "TxInitiated"
	case TxCompleted:
		return "TxCompleted"
	case TxFailed:
		return "TxFailed"
	default:
		return fmt.Sprintf("unknown tx status %d", status)
	}
}
