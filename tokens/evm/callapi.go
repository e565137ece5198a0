package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/rpc/client"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// RPCLog evm event log
type RPCLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
	Removed     bool     `json:"removed"`
}

// RPCReceipt evm transaction receipt
type RPCReceipt struct {
	Status            string    `json:"status"`
	BlockNumber       string    `json:"blockNumber"`
	TxHash            string    `json:"transactionHash"`
	GasUsed           string    `json:"gasUsed"`
	EffectiveGasPrice string    `json:"effectiveGasPrice"`
	Logs              []*RPCLog `json:"logs"`
}

// RPCBlock evm block header subset
type RPCBlock struct {
	Number    string `json:"number"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

func gateways(network *tokens.Network) ([]string, error) {
	if len(network.Gateways) == 0 {
		return nil, tokens.ErrNoGatewayNode
	}
	return network.Gateways, nil
}

// GetLatestBlockNumber implements tokens.ChainAdapter
func (a *Adapter) GetLatestBlockNumber(network *tokens.Network) (uint64, error) {
	urls, err := gateways(network)
	if err != nil {
		return 0, err
	}
	var result string
	err = client.RPCPostTryEachURL(&result, urls, "eth_blockNumber")
	if err != nil {
		return 0, wrapRPCError(err)
	}
	return common.GetUint64FromStr(result)
}

// GetPoolNonce implements tokens.ChainAdapter
func (a *Adapter) GetPoolNonce(network *tokens.Network, address string) (uint64, error) {
	urls, err := gateways(network)
	if err != nil {
		return 0, err
	}
	var result string
	err = client.RPCPostTryEachURL(&result, urls, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, wrapRPCError(err)
	}
	return common.GetUint64FromStr(result)
}

// GetBalance implements tokens.ChainAdapter. Queries the native balance
// or an ERC20 balanceOf depending on the asset's contract address.
func (a *Adapter) GetBalance(network *tokens.Network, address, asset string) (*big.Int, error) {
	urls, err := gateways(network)
	if err != nil {
		return nil, err
	}
	token := network.GetToken(asset)
	if token == nil {
		return nil, tokens.ErrTokenNotSupported
	}
	var result string
	if token.IsNative() {
		err = client.RPCPostTryEachURL(&result, urls, "eth_getBalance", address, "latest")
	} else {
		data := PackDataWithFuncHash(funcHashBalanceOf, common.HexToAddress(address))
		callArgs := map[string]string{
			"to":   token.ContractAddress,
			"data": common.ToHex(data),
		}
		err = client.RPCPostTryEachURL(&result, urls, "eth_call", callArgs, "latest")
	}
	if err != nil {
		return nil, wrapRPCError(err)
	}
	return common.GetBigIntFromStr(result)
}

// SendTransaction implements tokens.ChainAdapter
func (a *Adapter) SendTransaction(network *tokens.Network, signedTx interface{}) (string, error) {
	rawHex, ok := signedTx.(string)
	if !ok {
		return "", tokens.ErrWrongSignedTx
	}
	urls, err := gateways(network)
	if err != nil {
		return "", err
	}
	var result string
	for _, url := range urls {
		err = client.RPCPost(&result, url, "eth_sendRawTransaction", rawHex)
		if err == nil {
			return result, nil
		}
		if isDefinitiveSendError(err) {
			break
		}
	}
	return "", classifySendError(err)
}

// GetTransactionReceipt implements tokens.ChainAdapter
func (a *Adapter) GetTransactionReceipt(network *tokens.Network, txHash string) (*tokens.TxReceipt, error) {
	urls, err := gateways(network)
	if err != nil {
		return nil, err
	}
	var receipt RPCReceipt
	err = client.RPCPostTryEachURL(&receipt, urls, "eth_getTransactionReceipt", txHash)
	if err != nil {
		if client.IsNullResultError(err) {
			return nil, tokens.ErrTxNotFound
		}
		return nil, wrapRPCError(err)
	}
	height, err := common.GetUint64FromStr(receipt.BlockNumber)
	if err != nil {
		return nil, err
	}
	latest, err := a.GetLatestBlockNumber(network)
	if err != nil {
		return nil, err
	}
	var confirmations uint64
	if latest >= height {
		confirmations = latest - height + 1
	}
	status, _ := common.GetUint64FromStr(receipt.Status)
	result := &tokens.TxReceipt{
		TxHash:        txHash,
		Success:       status == 1,
		BlockHeight:   height,
		Confirmations: confirmations,
	}
	gasUsed, errG := common.GetBigIntFromStr(receipt.GasUsed)
	gasPrice, errP := common.GetBigIntFromStr(receipt.EffectiveGasPrice)
	if errG == nil && errP == nil {
		result.FeePaid = new(big.Int).Mul(gasUsed, gasPrice)
	}
	if blockTime, errT := a.getBlockTime(network, height); errT == nil {
		result.BlockTime = blockTime
	}
	return result, nil
}

func (a *Adapter) getBlockTime(network *tokens.Network, height uint64) (uint64, error) {
	urls, err := gateways(network)
	if err != nil {
		return 0, err
	}
	var block RPCBlock
	err = client.RPCPostTryEachURL(&block, urls, "eth_getBlockByNumber", common.Uint64ToHex(height), false)
	if err != nil {
		return 0, wrapRPCError(err)
	}
	return common.GetUint64FromStr(block.Timestamp)
}

// getContractLogs logs of the HTLC contract in one block
func (a *Adapter) getContractLogs(network *tokens.Network, height uint64, topics []string) ([]*RPCLog, error) {
	urls, err := gateways(network)
	if err != nil {
		return nil, err
	}
	filter := map[string]interface{}{
		"address":   network.HTLCContract,
		"fromBlock": common.Uint64ToHex(height),
		"toBlock":   common.Uint64ToHex(height),
		"topics":    [][]string{topics},
	}
	result := make([]*RPCLog, 0, 4)
	err = client.RPCPostTryEachURL(&result, urls, "eth_getLogs", filter)
	if err != nil {
		if client.IsNullResultError(err) {
			return nil, nil
		}
		return nil, wrapRPCError(err)
	}
	return result, nil
}

func wrapRPCError(err error) error {
	return fmt.Errorf("%w: %v", tokens.ErrRPCQueryError, err)
}

func isDefinitiveSendError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "nonce") ||
		strings.Contains(errMsg, "underpriced") ||
		strings.Contains(errMsg, "insufficient funds") ||
		strings.Contains(errMsg, "already known")
}

// classifySendError map raw node submission errors to the sentinel
// errors the processor understands.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "nonce too low"),
		strings.Contains(errMsg, "already known"),
		strings.Contains(errMsg, "known transaction"):
		return tokens.ErrNonceTooLow
	case strings.Contains(errMsg, "underpriced"),
		strings.Contains(errMsg, "fee cap less than"):
		return tokens.ErrTxUnderpriced
	case strings.Contains(errMsg, "insufficient funds"):
		return tokens.ErrBalanceNotEnough
	}
	return err
}
