package client

import "errors"

// ErrRPCNullResult the rpc call succeeded but the result is null,
// eg. querying a receipt of a transaction not yet mined.
var ErrRPCNullResult = errors.New("rpc result is null")

// IsNullResultError is null result error
func IsNullResultError(err error) bool {
	return errors.Is(err, ErrRPCNullResult)
}
