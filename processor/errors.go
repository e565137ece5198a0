package processor

import (
	"errors"
	"strings"

	"github.com/crosslock/CrossChain-Solver/tokens"
)

// processor errors
var (
	ErrPermanentlyFailed = errors.New("transaction permanently failed")
	ErrTooManyRetries    = errors.New("too many publish retries")
	ErrConfirmExpired    = errors.New("confirmation horizon expired")
	ErrBalanceShort      = errors.New("balance still short after retries")
)

// errClass the taxonomy the processor sorts every adapter error into.
// The saga never interprets raw adapter errors itself.
type errClass int

const (
	classTransient errClass = iota
	classUnderpriced
	classNonceStale
	classProtocolOutcome
	classPermanent
	classFatalConfig
)

// classify sort an adapter error. Raw node error texts are matched for
// the submission errors chains report only as strings.
func classify(err error) errClass {
	switch {
	case tokens.IsFatalConfigError(err):
		return classFatalConfig
	case tokens.IsProtocolOutcome(err):
		return classProtocolOutcome
	case errors.Is(err, tokens.ErrTxUnderpriced):
		return classUnderpriced
	case errors.Is(err, tokens.ErrNonceTooLow):
		return classNonceStale
	case errors.Is(err, tokens.ErrTxOnChainFailed):
		return classPermanent
	case tokens.IsTransientError(err):
		return classTransient
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "nonce too low"),
		strings.Contains(errMsg, "invalid nonce"),
		strings.Contains(errMsg, "known transaction"):
		return classNonceStale
	case strings.Contains(errMsg, "underpriced"),
		strings.Contains(errMsg, "fee too low"),
		strings.Contains(errMsg, "gas price too low"):
		return classUnderpriced
	case strings.Contains(errMsg, "insufficient funds"):
		return classTransient
	case strings.Contains(errMsg, "timeout"),
		strings.Contains(errMsg, "connection"),
		strings.Contains(errMsg, "eof"):
		return classTransient
	}
	return classPermanent
}
