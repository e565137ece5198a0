// Package quote computes destination amounts and fees over the
// configured routes. Pure lookup and arithmetic, no chain access.
package quote

import (
	"errors"
	"math/big"
	"strings"
	"sync"
)

// quote errors
var (
	ErrNoActiveRoute   = errors.New("no active route")
	ErrAmountTooSmall  = errors.New("amount below route minimum")
	ErrAmountTooLarge  = errors.New("amount above route maximum")
	ErrWrongRouteSetup = errors.New("wrong route setup")
)

// Route one directed (source asset -> destination asset) swap path.
// Rate is expressed as a fraction so integer amounts never lose
// precision to floats.
type Route struct {
	SrcNetwork string
	SrcToken   string
	DstNetwork string
	DstToken   string

	RateNumerator   uint64
	RateDenominator uint64
	FeeRatePerMille uint64 // fee taken from the converted amount
	MinFee          *big.Int
	MinAmount       *big.Int
	MaxAmount       *big.Int

	// LockReward is carved out of our destination lock as the
	// counterpart's incentive to add its source lock promptly, claimable
	// until RewardWindow seconds after the lock is placed.
	LockReward   *big.Int
	RewardWindow int64

	Enabled bool
}

// CheckRoute validate route parameters
func CheckRoute(r *Route) error {
	if r.SrcNetwork == "" || r.SrcToken == "" || r.DstNetwork == "" || r.DstToken == "" {
		return ErrWrongRouteSetup
	}
	if r.RateNumerator == 0 || r.RateDenominator == 0 {
		return ErrWrongRouteSetup
	}
	if r.FeeRatePerMille >= 1000 {
		return ErrWrongRouteSetup
	}
	if r.MinAmount == nil || r.MaxAmount == nil || r.MinAmount.Cmp(r.MaxAmount) > 0 {
		return ErrWrongRouteSetup
	}
	if r.LockReward != nil && r.LockReward.Sign() > 0 && r.RewardWindow <= 0 {
		return ErrWrongRouteSetup
	}
	return nil
}

// Result a computed quote
type Result struct {
	DstAmount *big.Int
	FeeAmount *big.Int
}

// Limit min and max accepted source amounts of a route
type Limit struct {
	MinAmount *big.Int
	MaxAmount *big.Int
}

var (
	routesConfig   []*Route
	routesConfigMu sync.RWMutex
)

// SetRoutes set the configured routes, called at startup and on dynamic
// route file additions.
func SetRoutes(routes []*Route) {
	routesConfigMu.Lock()
	defer routesConfigMu.Unlock()
	routesConfig = routes
}

// FindRoute the active route of a (src, dst) asset pair, nil when the
// solver does not serve it.
func FindRoute(srcNetwork, srcToken, dstNetwork, dstToken string) *Route {
	routesConfigMu.RLock()
	defer routesConfigMu.RUnlock()
	for _, r := range routesConfig {
		if r.Enabled &&
			strings.EqualFold(r.SrcNetwork, srcNetwork) &&
			strings.EqualFold(r.SrcToken, srcToken) &&
			strings.EqualFold(r.DstNetwork, dstNetwork) &&
			strings.EqualFold(r.DstToken, dstToken) {
			return r
		}
	}
	return nil
}

// HasRoute whether an active route serves the pair
func HasRoute(srcNetwork, srcToken, dstNetwork, dstToken string) bool {
	return FindRoute(srcNetwork, srcToken, dstNetwork, dstToken) != nil
}

// GetQuote destination amount and total fee for a source amount.
func GetQuote(srcNetwork, srcToken, dstNetwork, dstToken string, amount *big.Int) (*Result, error) {
	route := FindRoute(srcNetwork, srcToken, dstNetwork, dstToken)
	if route == nil {
		return nil, ErrNoActiveRoute
	}
	if amount.Cmp(route.MinAmount) < 0 {
		return nil, ErrAmountTooSmall
	}
	if amount.Cmp(route.MaxAmount) > 0 {
		return nil, ErrAmountTooLarge
	}

	converted := new(big.Int).Mul(amount, new(big.Int).SetUint64(route.RateNumerator))
	converted.Div(converted, new(big.Int).SetUint64(route.RateDenominator))

	fee := new(big.Int).Mul(converted, new(big.Int).SetUint64(route.FeeRatePerMille))
	fee.Div(fee, big.NewInt(1000))
	if route.MinFee != nil && fee.Cmp(route.MinFee) < 0 {
		fee.Set(route.MinFee)
	}

	dstAmount := new(big.Int).Sub(converted, fee)
	if dstAmount.Sign() <= 0 {
		return nil, ErrAmountTooSmall
	}
	return &Result{DstAmount: dstAmount, FeeAmount: fee}, nil
}

// GetLimit min and max accepted amounts of the pair.
func GetLimit(srcNetwork, srcToken, dstNetwork, dstToken string) (*Limit, error) {
	route := FindRoute(srcNetwork, srcToken, dstNetwork, dstToken)
	if route == nil {
		return nil, ErrNoActiveRoute
	}
	return &Limit{
		MinAmount: new(big.Int).Set(route.MinAmount),
		MaxAmount: new(big.Int).Set(route.MaxAmount),
	}, nil
}
