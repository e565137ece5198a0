package tokens

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeAmount(t *testing.T) {
	fixed := &Fee{Asset: "XLM", Decimals: 7, Fixed: &FixedFee{Amount: big.NewInt(100)}}
	assert.Equal(t, int64(100), fixed.Amount().Int64())

	legacy := &Fee{Asset: "ETH", Decimals: 18, Legacy: &LegacyFee{GasPrice: big.NewInt(5e9), GasLimit: 21000}}
	assert.Equal(t, new(big.Int).Mul(big.NewInt(5e9), big.NewInt(21000)), legacy.Amount())

	dynamic := &Fee{Asset: "ETH", Decimals: 18, Dynamic: &DynamicFee{
		BaseFee:     big.NewInt(30),
		PriorityFee: big.NewInt(2),
		GasLimit:    100,
		L1DataFee:   big.NewInt(7),
	}}
	assert.Equal(t, int64(32*100+7), dynamic.Amount().Int64())

	solana := &Fee{Asset: "SOL", Decimals: 9, Solana: &SolanaFee{
		ComputeUnitPrice: big.NewInt(2e6), // micro lamports
		ComputeUnitLimit: 200000,
		BaseFee:          big.NewInt(5000),
	}}
	assert.Equal(t, int64(2*200000+5000), solana.Amount().Int64())

	empty := &Fee{Asset: "ETH"}
	assert.Equal(t, int64(0), empty.Amount().Int64())
}

func TestEscalateFee(t *testing.T) {
	fees := []*Fee{
		{Fixed: &FixedFee{Amount: big.NewInt(1000)}},
		{Legacy: &LegacyFee{GasPrice: big.NewInt(5e9), GasLimit: 21000}},
		{Dynamic: &DynamicFee{BaseFee: big.NewInt(30), PriorityFee: big.NewInt(2), GasLimit: 100}},
		{Solana: &SolanaFee{ComputeUnitPrice: big.NewInt(1e6), ComputeUnitLimit: 200000, BaseFee: big.NewInt(5000)}},
	}
	for _, fee := range fees {
		escalated, err := EscalateFee(fee, 10)
		assert.NoError(t, err)
		assert.Equal(t, 1, escalated.Amount().Cmp(fee.Amount()), "escalated fee must strictly increase")
	}
}

func TestEscalateFeeStrictOnSmallValues(t *testing.T) {
	// 10% of 1 rounds down to 0, the escalation must still be strict
	fee := &Fee{Fixed: &FixedFee{Amount: big.NewInt(1)}}
	escalated, err := EscalateFee(fee, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), escalated.Fixed.Amount.Int64())
}

func TestEscalateFeeRejectsEmptyVariant(t *testing.T) {
	_, err := EscalateFee(nil, 10)
	assert.Equal(t, ErrEmptyFeeVariant, err)

	_, err = EscalateFee(&Fee{Asset: "ETH"}, 10)
	assert.Equal(t, ErrEmptyFeeVariant, err)

	_, err = EscalateFee(&Fee{Fixed: &FixedFee{Amount: big.NewInt(1)}}, MaxPlusFeePercentage+1)
	assert.Equal(t, ErrFeePercentageTooLarge, err)
}

func TestEscalateFeeDoesNotMutateInput(t *testing.T) {
	fee := &Fee{Legacy: &LegacyFee{GasPrice: big.NewInt(100), GasLimit: 21000}}
	_, err := EscalateFee(fee, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), fee.Legacy.GasPrice.Int64())
}
