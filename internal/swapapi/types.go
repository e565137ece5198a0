package swapapi

import (
	"github.com/crosslock/CrossChain-Solver/mongodb"
)

// SwapStatus type alias
type SwapStatus = mongodb.SwapStatus

// Swap type alias
type Swap = mongodb.MgoSwap

// Transaction type alias
type Transaction = mongodb.MgoTransaction

// PostResult post result
type PostResult string

// SuccessPostResult success post result
var SuccessPostResult PostResult = "Success"

// ServerInfo server info
type ServerInfo struct {
	Identifier string   `json:"identifier"`
	Networks   []string `json:"networks"`
	Version    string   `json:"version"`
}

// SwapInfo a swap with its on-chain actions, the external read view
type SwapInfo struct {
	CommitID    string     `json:"commitID"`
	CommitTx    string     `json:"commitTx"`
	SrcNetwork  string     `json:"srcNetwork"`
	SrcToken    string     `json:"srcToken"`
	DstNetwork  string     `json:"dstNetwork"`
	DstToken    string     `json:"dstToken"`
	Depositor   string     `json:"depositor"`
	DstAddress  string     `json:"dstAddress"`
	SrcAmount   string     `json:"srcAmount"`
	DstAmount   string     `json:"dstAmount"`
	FeeAmount   string     `json:"feeAmount"`
	Hashlock    string     `json:"hashlock"`
	SrcTimelock int64      `json:"srcTimelock"`
	DstTimelock int64      `json:"dstTimelock"`
	Status      SwapStatus `json:"status"`
	StatusMsg   string     `json:"statusMsg"`
	InitTime    int64      `json:"initTime"`
	Timestamp   int64      `json:"timestamp"`
	Memo        string     `json:"memo,omitempty"`

	Transactions []*TransactionInfo `json:"transactions"`
}

// TransactionInfo the external read view of one on-chain action
type TransactionInfo struct {
	TxType       string   `json:"txType"`
	Network      string   `json:"network"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Value        string   `json:"value"`
	TxHash       string   `json:"txHash"`
	PublishedTxs []string `json:"publishedTxs,omitempty"`
	Nonce        uint64   `json:"nonce"`
	AttemptCount int      `json:"attemptCount"`
	ProcState    string   `json:"procState"`
	Status       string   `json:"status"`
	TxHeight     uint64   `json:"txHeight"`
	FeePaid      string   `json:"feePaid,omitempty"`
	Memo         string   `json:"memo,omitempty"`
}

// RouteLimit min and max accepted source amounts of a route
type RouteLimit struct {
	SrcNetwork string `json:"srcNetwork"`
	SrcToken   string `json:"srcToken"`
	DstNetwork string `json:"dstNetwork"`
	DstToken   string `json:"dstToken"`
	MinAmount  string `json:"minAmount"`
	MaxAmount  string `json:"maxAmount"`
}

// ScanStatus the listener cursor of one network
type ScanStatus struct {
	Network   string `json:"network"`
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}
