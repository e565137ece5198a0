// Package rpcapi exposes the read-only query surface over gorilla
// JSON-RPC 2.0.
package rpcapi

import (
	"net/http"

	"github.com/crosslock/CrossChain-Solver/internal/swapapi"
	"github.com/crosslock/CrossChain-Solver/params"
)

// RPCAPI rpc api handler
type RPCAPI struct{}

// RPCNullArgs null args
type RPCNullArgs struct{}

// RouteArgs identifies one directed route
type RouteArgs struct {
	SrcNetwork string `json:"srcNetwork"`
	SrcToken   string `json:"srcToken"`
	DstNetwork string `json:"dstNetwork"`
	DstToken   string `json:"dstToken"`
}

// GetVersionInfo api
func (s *RPCAPI) GetVersionInfo(r *http.Request, args *RPCNullArgs, result *string) error {
	version := params.VersionWithMeta
	*result = version
	return nil
}

// GetServerInfo api
func (s *RPCAPI) GetServerInfo(r *http.Request, args *RPCNullArgs, result *swapapi.ServerInfo) error {
	res, err := swapapi.GetServerInfo()
	if err == nil && res != nil {
		*result = *res
	}
	return err
}

// GetSwap api
func (s *RPCAPI) GetSwap(r *http.Request, commitID *string, result *swapapi.SwapInfo) error {
	res, err := swapapi.GetSwap(*commitID)
	if err == nil && res != nil {
		*result = *res
	}
	return err
}

// GetRouteLimit api
func (s *RPCAPI) GetRouteLimit(r *http.Request, args *RouteArgs, result *swapapi.RouteLimit) error {
	res, err := swapapi.GetRouteLimit(args.SrcNetwork, args.SrcToken, args.DstNetwork, args.DstToken)
	if err == nil && res != nil {
		*result = *res
	}
	return err
}

// RegisterLockSigArgs args of RegisterLockSig
type RegisterLockSigArgs struct {
	CommitID string `json:"commitID"`
	Timelock int64  `json:"timelock"`
}

// RegisterLockSig api
func (s *RPCAPI) RegisterLockSig(r *http.Request, args *RegisterLockSigArgs, result *swapapi.PostResult) error {
	res, err := swapapi.RegisterLockSig(args.CommitID, args.Timelock)
	if err == nil && res != nil {
		*result = *res
	}
	return err
}

// GetScanStatus api
func (s *RPCAPI) GetScanStatus(r *http.Request, network *string, result *swapapi.ScanStatus) error {
	res, err := swapapi.GetScanStatus(*network)
	if err == nil && res != nil {
		*result = *res
	}
	return err
}
