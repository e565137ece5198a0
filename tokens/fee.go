package tokens

import (
	"math/big"
)

// MaxPlusFeePercentage max allowed fee escalation percentage in one step
const MaxPlusFeePercentage = uint64(100)

// FixedFee a chain with a flat protocol fee
type FixedFee struct {
	Amount *big.Int `json:"amount"`
}

// LegacyFee gas price * gas limit
type LegacyFee struct {
	GasPrice *big.Int `json:"gasPrice"`
	GasLimit uint64   `json:"gasLimit"`
}

// DynamicFee EIP-1559 base + priority fee, with an optional L1 data fee
// for rollups.
type DynamicFee struct {
	BaseFee     *big.Int `json:"baseFee"`
	PriorityFee *big.Int `json:"priorityFee"`
	GasLimit    uint64   `json:"gasLimit"`
	L1DataFee   *big.Int `json:"l1DataFee,omitempty"`
}

// SolanaFee compute-unit price * limit + base fee
type SolanaFee struct {
	ComputeUnitPrice *big.Int `json:"computeUnitPrice"` // micro lamports
	ComputeUnitLimit uint64   `json:"computeUnitLimit"`
	BaseFee          *big.Int `json:"baseFee"`
}

// Fee a chain's cost model. Exactly one variant is set.
type Fee struct {
	Asset    string `json:"asset"`
	Decimals uint8  `json:"decimals"`

	Fixed   *FixedFee   `json:"fixed,omitempty"`
	Legacy  *LegacyFee  `json:"legacy,omitempty"`
	Dynamic *DynamicFee `json:"dynamic,omitempty"`
	Solana  *SolanaFee  `json:"solana,omitempty"`
}

// Amount total cost of the fee in the fee asset's smallest unit,
// used to compare against balances.
func (f *Fee) Amount() *big.Int {
	switch {
	case f.Fixed != nil:
		return new(big.Int).Set(f.Fixed.Amount)
	case f.Legacy != nil:
		return new(big.Int).Mul(f.Legacy.GasPrice, new(big.Int).SetUint64(f.Legacy.GasLimit))
	case f.Dynamic != nil:
		gasFee := new(big.Int).Add(f.Dynamic.BaseFee, f.Dynamic.PriorityFee)
		gasFee.Mul(gasFee, new(big.Int).SetUint64(f.Dynamic.GasLimit))
		if f.Dynamic.L1DataFee != nil {
			gasFee.Add(gasFee, f.Dynamic.L1DataFee)
		}
		return gasFee
	case f.Solana != nil:
		cuFee := new(big.Int).Mul(f.Solana.ComputeUnitPrice, new(big.Int).SetUint64(f.Solana.ComputeUnitLimit))
		// compute unit price is in micro lamports
		cuFee.Div(cuFee, big.NewInt(1e6))
		return cuFee.Add(cuFee, f.Solana.BaseFee)
	}
	return big.NewInt(0)
}

// EscalateFee increases the fee's cost component by percentage and returns
// a new fee. The increase is strict even when the percentage rounds to
// zero on small values.
func EscalateFee(fee *Fee, percentage uint64) (*Fee, error) {
	if fee == nil {
		return nil, ErrEmptyFeeVariant
	}
	if percentage > MaxPlusFeePercentage {
		return nil, ErrFeePercentageTooLarge
	}
	escalated := *fee
	switch {
	case fee.Fixed != nil:
		escalated.Fixed = &FixedFee{Amount: plusPercent(fee.Fixed.Amount, percentage)}
	case fee.Legacy != nil:
		escalated.Legacy = &LegacyFee{
			GasPrice: plusPercent(fee.Legacy.GasPrice, percentage),
			GasLimit: fee.Legacy.GasLimit,
		}
	case fee.Dynamic != nil:
		dyn := *fee.Dynamic
		dyn.PriorityFee = plusPercent(fee.Dynamic.PriorityFee, percentage)
		escalated.Dynamic = &dyn
	case fee.Solana != nil:
		sol := *fee.Solana
		sol.ComputeUnitPrice = plusPercent(fee.Solana.ComputeUnitPrice, percentage)
		escalated.Solana = &sol
	default:
		return nil, ErrEmptyFeeVariant
	}
	return &escalated, nil
}

func plusPercent(value *big.Int, percentage uint64) *big.Int {
	res := new(big.Int).Mul(value, new(big.Int).SetUint64(100+percentage))
	res.Div(res, big.NewInt(100))
	if res.Cmp(value) <= 0 {
		res.Add(value, big.NewInt(1))
	}
	return res
}
