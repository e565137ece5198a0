// Package swapapi is the query surface behind the status API, plus the
// depositor's lock submission request. It never moves funds directly,
// requests are persisted on the swap and executed by the saga workers.
package swapapi

import (
	"strings"

	rpcjson "github.com/gorilla/rpc/v2/json2"

	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/mongodb"
	"github.com/crosslock/CrossChain-Solver/params"
	"github.com/crosslock/CrossChain-Solver/quote"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

var (
	errSwapNotFound   = newRPCError(-32096, "swap not found")
	errNoRoute        = newRPCError(-32095, "no active route")
	errUnknownNet     = newRPCError(-32094, "unknown network")
	errSwapNotWaiting = newRPCError(-32093, "swap is not awaiting the source lock")
	errTimelockEarly  = newRPCError(-32092, "timelock must exceed the destination lock's timelock")
)

// the depositor's lock must outlive our destination lock by this many
// seconds, otherwise the depositor could redeem ours and refund theirs
const minSrcTimelockGap = int64(600)

func newRPCError(ec rpcjson.ErrorCode, message string) error {
	return &rpcjson.Error{
		Code:    ec,
		Message: message,
	}
}

func newRPCInternalError(err error) error {
	return newRPCError(-32000, "rpcError: "+err.Error())
}

// GetServerInfo api
func GetServerInfo() (*ServerInfo, error) {
	log.Debug("[api] receive GetServerInfo")
	config := params.GetConfig()
	if config == nil {
		return nil, nil
	}
	networks := make([]string, 0, len(config.Networks))
	for _, n := range config.Networks {
		networks = append(networks, n.Name)
	}
	return &ServerInfo{
		Identifier: config.Identifier,
		Networks:   networks,
		Version:    params.VersionWithMeta,
	}, nil
}

// GetSwap swap with its on-chain actions by commit id
func GetSwap(commitID string) (*SwapInfo, error) {
	log.Debug("[api] receive GetSwap", "commitID", commitID)
	swap, err := mongodb.FindSwap(strings.ToLower(commitID))
	if err != nil {
		if mongodb.IsNotFoundError(err) {
			return nil, errSwapNotFound
		}
		return nil, newRPCInternalError(err)
	}
	txs, err := mongodb.FindSwapTransactions(swap.Key)
	if err != nil {
		return nil, newRPCInternalError(err)
	}
	return convertSwapInfo(swap, txs), nil
}

// GetRouteLimit accepted amount bounds of a route
func GetRouteLimit(srcNetwork, srcToken, dstNetwork, dstToken string) (*RouteLimit, error) {
	log.Debug("[api] receive GetRouteLimit",
		"src", srcNetwork+":"+srcToken, "dst", dstNetwork+":"+dstToken)
	limit, err := quote.GetLimit(srcNetwork, srcToken, dstNetwork, dstToken)
	if err != nil {
		return nil, errNoRoute
	}
	return &RouteLimit{
		SrcNetwork: srcNetwork,
		SrcToken:   srcToken,
		DstNetwork: dstNetwork,
		DstToken:   dstToken,
		MinAmount:  limit.MinAmount.String(),
		MaxAmount:  limit.MaxAmount.String(),
	}, nil
}

// RegisterLockSig the depositor pre-authorized the source lock at
// commit time and asks us to submit and pay for it. The request is
// stored on the swap, the saga submits the lock on its next step and
// the listener's lock observation drives the swap forward from there.
func RegisterLockSig(commitID string, timelock int64) (*PostResult, error) {
	log.Debug("[api] receive RegisterLockSig", "commitID", commitID, "timelock", timelock)
	swap, err := mongodb.FindSwap(strings.ToLower(commitID))
	if err != nil {
		if mongodb.IsNotFoundError(err) {
			return nil, errSwapNotFound
		}
		return nil, newRPCInternalError(err)
	}
	if swap.Status != mongodb.SwapAwaitingLock || swap.LockObserved {
		return nil, errSwapNotWaiting
	}
	if timelock < swap.DstTimelock+minSrcTimelockGap {
		return nil, errTimelockEarly
	}
	if err = mongodb.UpdateSwapLockSigRequest(swap.Key, timelock); err != nil {
		return nil, newRPCInternalError(err)
	}
	return &SuccessPostResult, nil
}

// GetScanStatus listener cursor of a network
func GetScanStatus(network string) (*ScanStatus, error) {
	log.Debug("[api] receive GetScanStatus", "network", network)
	if tokens.GetNetwork(network) == nil {
		return nil, errUnknownNet
	}
	cursor, err := mongodb.FindBlockCursor(network)
	if err != nil {
		if mongodb.IsNotFoundError(err) {
			return &ScanStatus{Network: network}, nil
		}
		return nil, newRPCInternalError(err)
	}
	return &ScanStatus{
		Network:   network,
		Height:    cursor.Height,
		Timestamp: cursor.Timestamp,
	}, nil
}
