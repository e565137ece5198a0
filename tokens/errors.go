package tokens

import (
	"errors"
)

// common errors
var (
	ErrNetworkNotSupported   = errors.New("network not supported")
	ErrFamilyNotSupported    = errors.New("chain family not supported")
	ErrTokenNotSupported     = errors.New("token not supported")
	ErrNoManagedAccount      = errors.New("no managed account configured")
	ErrNoGatewayNode         = errors.New("no gateway node configured")
	ErrUnknownTxType         = errors.New("unknown transaction type")
	ErrWrongRawTx            = errors.New("wrong raw tx")
	ErrWrongSignedTx         = errors.New("wrong signed tx")
	ErrWrongHashlock         = errors.New("wrong hashlock")
	ErrWrongCommitID         = errors.New("wrong commit id")
	ErrWrongChunkSize        = errors.New("wrong chunk size")
	ErrWrongBlockRange       = errors.New("wrong block range")
	ErrEmptyFeeVariant       = errors.New("fee has no recognized variant")
	ErrFeePercentageTooLarge = errors.New("fee escalation percentage too large")

	ErrTxNotFound        = errors.New("tx not found")
	ErrTxNotConfirmed    = errors.New("tx not confirmed")
	ErrTxOnChainFailed   = errors.New("tx on chain failed")
	ErrRPCQueryError     = errors.New("rpc query error")
	ErrGetReceiptTimeout = errors.New("get receipt timeout")

	// transient submission errors, resolved by retry or fee escalation
	ErrNonceTooLow      = errors.New("nonce too low")
	ErrTxUnderpriced    = errors.New("tx underpriced")
	ErrBalanceNotEnough = errors.New("balance not enough")

	// protocol outcomes, the desired on-chain state may already hold
	ErrInvalidTimelock    = errors.New("invalid timelock")
	ErrHashlockAlreadySet = errors.New("hashlock already set")
	ErrHTLCAlreadyExists  = errors.New("htlc already exists")
	ErrAlreadyClaimed     = errors.New("htlc already claimed")
)

// IsTransientError returns whether err should be retried with backoff.
func IsTransientError(err error) bool {
	switch {
	case errors.Is(err, ErrNonceTooLow):
	case errors.Is(err, ErrTxUnderpriced):
	case errors.Is(err, ErrBalanceNotEnough):
	case errors.Is(err, ErrTxNotFound):
	case errors.Is(err, ErrTxNotConfirmed):
	case errors.Is(err, ErrRPCQueryError):
	default:
		return false
	}
	return true
}

// IsProtocolOutcome returns whether err means the desired on-chain state
// may already hold, so the caller must check actual state instead of
// retrying blindly.
func IsProtocolOutcome(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidTimelock):
	case errors.Is(err, ErrHashlockAlreadySet):
	case errors.Is(err, ErrHTLCAlreadyExists):
	case errors.Is(err, ErrAlreadyClaimed):
	default:
		return false
	}
	return true
}

// IsFatalConfigError returns whether err is unrecoverable misconfiguration
// where retrying cannot help.
func IsFatalConfigError(err error) bool {
	switch {
	case errors.Is(err, ErrNetworkNotSupported):
	case errors.Is(err, ErrFamilyNotSupported):
	case errors.Is(err, ErrNoGatewayNode):
	case errors.Is(err, ErrNoManagedAccount):
	default:
		return false
	}
	return true
}
