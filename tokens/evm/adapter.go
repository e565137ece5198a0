// Package evm is the chain adapter of EVM family networks. It is the
// mechanical translation layer between the solver's typed actions and
// the JSON-RPC surface of EVM nodes.
package evm

import (
	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// Adapter implements tokens.ChainAdapter for the EVM family
type Adapter struct{}

// NewAdapter new evm adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Family implements tokens.ChainAdapter
func (a *Adapter) Family() tokens.ChainFamily {
	return tokens.FamilyEVM
}

// event topics and method selectors of the solver's HTLC contract
var (
	topicTokenCommitted = common.Keccak256Hash([]byte("TokenCommitted(bytes32,address,address,uint256,uint256,string,string,string)"))
	topicTokenLocked    = common.Keccak256Hash([]byte("TokenLocked(bytes32,bytes32,uint256)"))

	funcHashLock       = selector("lock(bytes32,bytes32,uint256,uint256,uint256,address)")
	funcHashRedeem     = selector("redeem(bytes32,bytes32)")
	funcHashRefund     = selector("refund(bytes32)")
	funcHashAddLockSig = selector("addLockSig(bytes32,uint256)")

	funcHashTransfer = selector("transfer(address,uint256)")
	funcHashApprove  = selector("approve(address,uint256)")

	funcHashBalanceOf = selector("balanceOf(address)")
)

func selector(signature string) []byte {
	hash := common.Keccak256Hash([]byte(signature))
	return hash.Bytes()[:4]
}
