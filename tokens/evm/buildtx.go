package evm

import (
	"math/big"
	"strings"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/rpc/client"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// UnsignedTx the chain-native unsigned transaction of the EVM family.
// The pinned fee and nonce are baked in when the caller has them, the
// signer service fills what is still missing.
type UnsignedTx struct {
	From     string      `json:"from"`
	To       string      `json:"to"`
	Value    *big.Int    `json:"value"`
	Data     string      `json:"data,omitempty"` // hex
	Nonce    *uint64     `json:"nonce,omitempty"`
	Fee      *tokens.Fee `json:"fee,omitempty"`
	GasLimit uint64      `json:"gasLimit,omitempty"`
}

// BuildTransaction implements tokens.ChainAdapter
func (a *Adapter) BuildTransaction(network *tokens.Network, args *tokens.BuildTxArgs) (interface{}, error) {
	var (
		to    string
		value = big.NewInt(0)
		input []byte
		err   error
	)
	switch args.TxType {
	case tokens.TransferTx:
		to, value, input, err = a.buildTransferData(network, args)
	case tokens.ApproveTx:
		to, input, err = a.buildApproveData(network, args)
	case tokens.HTLCLockTx:
		to, value, input, err = a.buildLockData(network, args)
	case tokens.HTLCRedeemTx:
		to, input, err = a.buildRedeemData(network, args)
	case tokens.HTLCRefundTx:
		to, input, err = a.buildRefundData(network, args)
	case tokens.HTLCAddLockSigTx:
		to, input, err = a.buildAddLockSigData(network, args)
	default:
		return nil, tokens.ErrUnknownTxType
	}
	if err != nil {
		return nil, err
	}
	rawTx := &UnsignedTx{
		From:  args.From,
		To:    to,
		Value: value,
		Data:  common.ToHex(input),
		Nonce: args.Nonce,
		Fee:   args.Fee,
	}
	if args.Fee != nil && args.Fee.Legacy != nil {
		rawTx.GasLimit = args.Fee.Legacy.GasLimit
	}
	if args.Fee != nil && args.Fee.Dynamic != nil {
		rawTx.GasLimit = args.Fee.Dynamic.GasLimit
	}
	return rawTx, nil
}

func (a *Adapter) buildTransferData(network *tokens.Network, args *tokens.BuildTxArgs) (to string, value *big.Int, input []byte, err error) {
	token := a.resolveToken(network, args.Asset)
	if token == nil {
		return "", nil, nil, tokens.ErrTokenNotSupported
	}
	if token.IsNative() {
		return args.To, args.Value, nil, nil
	}
	input = PackDataWithFuncHash(funcHashTransfer, common.HexToAddress(args.To), args.Value)
	return token.ContractAddress, big.NewInt(0), input, nil
}

func (a *Adapter) buildApproveData(network *tokens.Network, args *tokens.BuildTxArgs) (to string, input []byte, err error) {
	token := a.resolveToken(network, args.Asset)
	if token == nil || token.IsNative() {
		return "", nil, tokens.ErrTokenNotSupported
	}
	input = PackDataWithFuncHash(funcHashApprove, common.HexToAddress(args.To), args.Value)
	return token.ContractAddress, input, nil
}

// buildLockData lock(id, hashlock, timelock, reward, rewardTimelock, token).
// Native value rides along in the transaction value, token locks are
// pulled by the contract after an approve.
func (a *Adapter) buildLockData(network *tokens.Network, args *tokens.BuildTxArgs) (to string, value *big.Int, input []byte, err error) {
	if network.HTLCContract == "" {
		return "", nil, nil, tokens.ErrNetworkNotSupported
	}
	if !common.IsBytes32Hex(args.SwapID) || !common.IsBytes32Hex(args.Hashlock) {
		return "", nil, nil, tokens.ErrWrongCommitID
	}
	token := a.resolveToken(network, args.Asset)
	if token == nil {
		return "", nil, nil, tokens.ErrTokenNotSupported
	}
	reward := args.Reward
	if reward == nil {
		reward = big.NewInt(0)
	}
	input = PackDataWithFuncHash(funcHashLock,
		common.HexToHash(args.SwapID),
		common.HexToHash(args.Hashlock),
		args.Timelock,
		reward,
		args.RewardTimelock,
		common.HexToAddress(token.ContractAddress),
	)
	value = big.NewInt(0)
	if token.IsNative() {
		value = new(big.Int).Add(args.Value, reward)
	}
	return network.HTLCContract, value, input, nil
}

func (a *Adapter) buildRedeemData(network *tokens.Network, args *tokens.BuildTxArgs) (to string, input []byte, err error) {
	if network.HTLCContract == "" {
		return "", nil, tokens.ErrNetworkNotSupported
	}
	if !common.IsBytes32Hex(args.SwapID) {
		return "", nil, tokens.ErrWrongCommitID
	}
	if !common.IsBytes32Hex(args.Secret) {
		return "", nil, tokens.ErrWrongHashlock
	}
	input = PackDataWithFuncHash(funcHashRedeem,
		common.HexToHash(args.SwapID),
		common.HexToHash(args.Secret),
	)
	return network.HTLCContract, input, nil
}

func (a *Adapter) buildRefundData(network *tokens.Network, args *tokens.BuildTxArgs) (to string, input []byte, err error) {
	if network.HTLCContract == "" {
		return "", nil, tokens.ErrNetworkNotSupported
	}
	if !common.IsBytes32Hex(args.SwapID) {
		return "", nil, tokens.ErrWrongCommitID
	}
	input = PackDataWithFuncHash(funcHashRefund, common.HexToHash(args.SwapID))
	return network.HTLCContract, input, nil
}

func (a *Adapter) buildAddLockSigData(network *tokens.Network, args *tokens.BuildTxArgs) (to string, input []byte, err error) {
	if network.HTLCContract == "" {
		return "", nil, tokens.ErrNetworkNotSupported
	}
	if !common.IsBytes32Hex(args.SwapID) {
		return "", nil, tokens.ErrWrongCommitID
	}
	input = PackDataWithFuncHash(funcHashAddLockSig,
		common.HexToHash(args.SwapID),
		args.Timelock,
	)
	return network.HTLCContract, input, nil
}

func (a *Adapter) resolveToken(network *tokens.Network, asset string) *tokens.Token {
	if asset == "" {
		asset = network.NativeToken
	}
	return network.GetToken(asset)
}

// EstimateFee implements tokens.ChainAdapter. Networks whose head block
// carries a base fee get a dynamic fee, the rest stay on legacy gas price.
func (a *Adapter) EstimateFee(network *tokens.Network, rawTx interface{}) (*tokens.Fee, error) {
	tx, ok := rawTx.(*UnsignedTx)
	if !ok {
		return nil, tokens.ErrWrongRawTx
	}
	urls, err := gateways(network)
	if err != nil {
		return nil, err
	}
	gasLimit, err := a.estimateGasLimit(network, tx)
	if err != nil {
		return nil, err
	}
	nativeToken := network.GetToken(network.NativeToken)
	var decimals uint8 = 18
	if nativeToken != nil {
		decimals = nativeToken.Decimals
	}
	fee := &tokens.Fee{Asset: network.NativeToken, Decimals: decimals}

	baseFee, errB := a.getHeadBaseFee(network)
	if errB == nil && baseFee != nil && baseFee.Sign() > 0 {
		var tipResult string
		errT := client.RPCPostTryEachURL(&tipResult, urls, "eth_maxPriorityFeePerGas")
		priorityFee := big.NewInt(defaultPriorityFeeWei)
		if errT == nil {
			if tip, errP := common.GetBigIntFromStr(tipResult); errP == nil {
				priorityFee = tip
			}
		}
		fee.Dynamic = &tokens.DynamicFee{
			BaseFee:     baseFee,
			PriorityFee: priorityFee,
			GasLimit:    gasLimit,
		}
		return fee, nil
	}

	var priceResult string
	if err = client.RPCPostTryEachURL(&priceResult, urls, "eth_gasPrice"); err != nil {
		return nil, wrapRPCError(err)
	}
	gasPrice, err := common.GetBigIntFromStr(priceResult)
	if err != nil {
		return nil, err
	}
	fee.Legacy = &tokens.LegacyFee{GasPrice: gasPrice, GasLimit: gasLimit}
	return fee, nil
}

const (
	defaultPriorityFeeWei = 1e9 // 1 gwei
	gasLimitHeadroomPct   = 20
)

// estimateGasLimit eth_estimateGas with headroom. A revert here is a
// protocol outcome, the call would fail on chain for a protocol reason.
func (a *Adapter) estimateGasLimit(network *tokens.Network, tx *UnsignedTx) (uint64, error) {
	urls, err := gateways(network)
	if err != nil {
		return 0, err
	}
	callArgs := map[string]string{
		"from": tx.From,
		"to":   tx.To,
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		callArgs["value"] = common.BigToHex(tx.Value)
	}
	if tx.Data != "" && tx.Data != "0x" {
		callArgs["data"] = tx.Data
	}
	var result string
	err = client.RPCPostTryEachURL(&result, urls, "eth_estimateGas", callArgs)
	if err != nil {
		return 0, classifyRevertError(err)
	}
	gas, err := common.GetUint64FromStr(result)
	if err != nil {
		return 0, err
	}
	return gas * (100 + gasLimitHeadroomPct) / 100, nil
}

// classifyRevertError map contract revert reasons to the protocol
// outcome sentinels. Reasons come from the HTLC contract's require
// messages surfaced through eth_estimateGas.
func classifyRevertError(err error) error {
	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "invalid timelock"),
		strings.Contains(errMsg, "not future timelock"):
		return tokens.ErrInvalidTimelock
	case strings.Contains(errMsg, "hashlock already set"):
		return tokens.ErrHashlockAlreadySet
	case strings.Contains(errMsg, "contract already exists"),
		strings.Contains(errMsg, "htlc already exists"),
		strings.Contains(errMsg, "duplicate contract"):
		return tokens.ErrHTLCAlreadyExists
	case strings.Contains(errMsg, "already claimed"),
		strings.Contains(errMsg, "already redeemed"),
		strings.Contains(errMsg, "already refunded"):
		return tokens.ErrAlreadyClaimed
	case strings.Contains(errMsg, "insufficient funds"):
		return tokens.ErrBalanceNotEnough
	}
	return wrapRPCError(err)
}

func (a *Adapter) getHeadBaseFee(network *tokens.Network) (*big.Int, error) {
	urls, err := gateways(network)
	if err != nil {
		return nil, err
	}
	var block struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	err = client.RPCPostTryEachURL(&block, urls, "eth_getBlockByNumber", "latest", false)
	if err != nil {
		return nil, wrapRPCError(err)
	}
	if block.BaseFeePerGas == "" {
		return nil, nil
	}
	return common.GetBigIntFromStr(block.BaseFeePerGas)
}
