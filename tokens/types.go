package tokens

import (
	"math/big"
	"strings"
)

// ChainFamily is the identifier of a blockchain family sharing one adapter.
type ChainFamily string

// known chain families
const (
	FamilyEVM      ChainFamily = "evm"
	FamilySolana   ChainFamily = "solana"
	FamilyStarknet ChainFamily = "starknet"
	FamilyFuel     ChainFamily = "fuel"
)

// AccountRole the role of a managed account
type AccountRole string

// managed account roles
const (
	RolePrimary   AccountRole = "primary"
	RoleLiquidity AccountRole = "liquidity"
)

// Network is a configured blockchain. Immutable during a swap's lifetime.
type Network struct {
	Name            string
	Family          ChainFamily
	NativeToken     string
	Gateways        []string
	HTLCContract    string
	Confirmations   uint64
	InitialHeight   uint64
	Tokens          []*Token
	ManagedAccounts []*ManagedAccount
}

// Token is an asset on a network. Native iff ContractAddress is empty.
type Token struct {
	Symbol          string
	Decimals        uint8
	ContractAddress string
}

// IsNative returns whether the token is the network's native asset.
func (t *Token) IsNative() bool {
	return t.ContractAddress == ""
}

// ManagedAccount an address controlled by the solver on a network.
type ManagedAccount struct {
	Address string
	Role    AccountRole
}

// GetToken get token by symbol (case insensitive)
func (n *Network) GetToken(symbol string) *Token {
	for _, t := range n.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t
		}
	}
	return nil
}

// GetManagedAccount get managed account by role
func (n *Network) GetManagedAccount(role AccountRole) *ManagedAccount {
	for _, acc := range n.ManagedAccounts {
		if acc.Role == role {
			return acc
		}
	}
	return nil
}

// IsManagedAccount returns whether address is one of this solver's
// managed accounts on this network.
func (n *Network) IsManagedAccount(address string) bool {
	for _, acc := range n.ManagedAccounts {
		if strings.EqualFold(acc.Address, address) {
			return true
		}
	}
	return false
}

// TxType the type of an on-chain action
type TxType string

// transaction types
const (
	TransferTx       TxType = "Transfer"
	HTLCLockTx       TxType = "HTLCLock"
	HTLCRedeemTx     TxType = "HTLCRedeem"
	HTLCRefundTx     TxType = "HTLCRefund"
	ApproveTx        TxType = "Approve"
	HTLCAddLockSigTx TxType = "HTLCAddLockSig"
)

// BuildTxArgs typed prepare-arguments of one logical on-chain action.
// The processor passes them to the chain adapter unchanged on every retry.
type BuildTxArgs struct {
	TxType  TxType   `json:"txType"`
	SwapID  string   `json:"swapID,omitempty"` // commit id hex
	Network string   `json:"network"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Value   *big.Int `json:"value"`
	Asset   string   `json:"asset,omitempty"` // token symbol, native if token has no contract
	Memo    string   `json:"memo,omitempty"`

	// HTLC protocol fields
	Hashlock       string   `json:"hashlock,omitempty"`
	Secret         string   `json:"secret,omitempty"`
	Timelock       int64    `json:"timelock,omitempty"`
	Reward         *big.Int `json:"reward,omitempty"`
	RewardTimelock int64    `json:"rewardTimelock,omitempty"`

	// pinned execution context, filled in by the processor across attempts
	Nonce *uint64 `json:"nonce,omitempty"`
	Fee   *Fee    `json:"fee,omitempty"`
}

// UniquenessToken is the stable identifier of this logical action across
// retries and process restarts.
func (args *BuildTxArgs) UniquenessToken() string {
	if args.SwapID != "" {
		return strings.ToLower(args.SwapID) + ":" + string(args.TxType)
	}
	return strings.ToLower(args.Network+":"+args.From+":"+args.To) + ":" + string(args.TxType) + ":" + args.Memo
}

// CommitEvent a user deposit on a source chain naming this solver as receiver.
type CommitEvent struct {
	CommitID    string   `json:"commitID"` // 32-byte id, hex
	TxHash      string   `json:"txHash"`
	BlockHeight uint64   `json:"blockHeight"`
	Timestamp   uint64   `json:"timestamp"`
	Sender      string   `json:"sender"`
	Receiver    string   `json:"receiver"` // must match a managed account
	Amount      *big.Int `json:"amount"`
	SrcAsset    string   `json:"srcAsset"`
	DstNetwork  string   `json:"dstNetwork"`
	DstAsset    string   `json:"dstAsset"`
	DstAddress  string   `json:"dstAddress"`
	Timelock    int64    `json:"timelock"`
}

// LockEvent a hashlock/timelock attached to an HTLC.
type LockEvent struct {
	CommitID    string `json:"commitID"`
	TxHash      string `json:"txHash"`
	BlockHeight uint64 `json:"blockHeight"`
	Hashlock    string `json:"hashlock"`
	Timelock    int64  `json:"timelock"`
}

// BlockEvents decoded protocol events of one block
type BlockEvents struct {
	CommitEvents []*CommitEvent
	LockEvents   []*LockEvent
}

// TxReceipt the observed result of a published transaction
type TxReceipt struct {
	TxHash        string   `json:"txHash"`
	Success       bool     `json:"success"`
	BlockHeight   uint64   `json:"blockHeight"`
	BlockTime     uint64   `json:"blockTime"`
	Confirmations uint64   `json:"confirmations"`
	FeePaid       *big.Int `json:"feePaid,omitempty"`
}
