package quote

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRoutes() []*Route {
	return []*Route{
		{
			SrcNetwork:      "goerli",
			SrcToken:        "USDC",
			DstNetwork:      "fuji",
			DstToken:        "USDC",
			RateNumerator:   1,
			RateDenominator: 1,
			FeeRatePerMille: 5,
			MinFee:          big.NewInt(100),
			MinAmount:       big.NewInt(1000),
			MaxAmount:       big.NewInt(1000000),
			Enabled:         true,
		},
		{
			SrcNetwork:      "goerli",
			SrcToken:        "ETH",
			DstNetwork:      "fuji",
			DstToken:        "WETH",
			RateNumerator:   997,
			RateDenominator: 1000,
			FeeRatePerMille: 0,
			MinAmount:       big.NewInt(1),
			MaxAmount:       big.NewInt(1e18),
			Enabled:         false,
		},
	}
}

func TestGetQuote(t *testing.T) {
	SetRoutes(testRoutes())

	res, err := GetQuote("goerli", "USDC", "fuji", "USDC", big.NewInt(100000))
	assert.NoError(t, err)
	assert.Equal(t, int64(500), res.FeeAmount.Int64())
	assert.Equal(t, int64(99500), res.DstAmount.Int64())

	// fee floor applies on small amounts
	res, err = GetQuote("goerli", "USDC", "fuji", "USDC", big.NewInt(2000))
	assert.NoError(t, err)
	assert.Equal(t, int64(100), res.FeeAmount.Int64())
	assert.Equal(t, int64(1900), res.DstAmount.Int64())
}

func TestGetQuoteRouteFiltering(t *testing.T) {
	SetRoutes(testRoutes())

	// disabled route is not an active route
	_, err := GetQuote("goerli", "ETH", "fuji", "WETH", big.NewInt(100))
	assert.Equal(t, ErrNoActiveRoute, err)

	_, err = GetQuote("goerli", "USDC", "mainnet", "USDC", big.NewInt(100000))
	assert.Equal(t, ErrNoActiveRoute, err)

	_, err = GetQuote("goerli", "USDC", "fuji", "USDC", big.NewInt(10))
	assert.Equal(t, ErrAmountTooSmall, err)

	_, err = GetQuote("goerli", "USDC", "fuji", "USDC", big.NewInt(2000000))
	assert.Equal(t, ErrAmountTooLarge, err)
}

func TestGetLimit(t *testing.T) {
	SetRoutes(testRoutes())

	limit, err := GetLimit("goerli", "USDC", "fuji", "USDC")
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), limit.MinAmount.Int64())
	assert.Equal(t, int64(1000000), limit.MaxAmount.Int64())

	_, err = GetLimit("fuji", "USDC", "goerli", "USDC")
	assert.Equal(t, ErrNoActiveRoute, err)
}

func TestCheckRoute(t *testing.T) {
	good := testRoutes()[0]
	assert.NoError(t, CheckRoute(good))

	bad := *good
	bad.RateDenominator = 0
	assert.Equal(t, ErrWrongRouteSetup, CheckRoute(&bad))

	bad = *good
	bad.FeeRatePerMille = 1000
	assert.Equal(t, ErrWrongRouteSetup, CheckRoute(&bad))

	bad = *good
	bad.MinAmount = big.NewInt(10)
	bad.MaxAmount = big.NewInt(1)
	assert.Equal(t, ErrWrongRouteSetup, CheckRoute(&bad))
}
