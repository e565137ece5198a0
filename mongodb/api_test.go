package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNonRefundedSwap(t *testing.T) {
	swap := &MgoSwap{Key: "0x01"}

	lock := &MgoTransaction{TxType: "HTLCLock", Status: TxCompleted}
	redeem := &MgoTransaction{TxType: "HTLCRedeem", Status: TxCompleted}
	refund := &MgoTransaction{TxType: "HTLCRefund", Status: TxCompleted}
	pendingRedeem := &MgoTransaction{TxType: "HTLCRedeem", Status: TxInitiated}

	assert.True(t, IsNonRefundedSwap(swap, []*MgoTransaction{lock}))
	assert.True(t, IsNonRefundedSwap(swap, []*MgoTransaction{lock, pendingRedeem}))

	assert.False(t, IsNonRefundedSwap(swap, []*MgoTransaction{lock, redeem}))
	assert.False(t, IsNonRefundedSwap(swap, []*MgoTransaction{lock, refund}))
	assert.False(t, IsNonRefundedSwap(swap, nil))
	assert.False(t, IsNonRefundedSwap(swap, []*MgoTransaction{redeem}))
}
