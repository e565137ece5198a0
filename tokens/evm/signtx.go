package evm

import (
	"encoding/json"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/signer"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// SignTransaction implements tokens.ChainAdapter. The unsigned tx is
// json-encoded as the signer payload, the signer returns a ready-to-
// publish raw transaction and its hash.
func (a *Adapter) SignTransaction(network *tokens.Network, rawTx interface{}, from string) (interface{}, string, error) {
	tx, ok := rawTx.(*UnsignedTx)
	if !ok {
		return nil, "", tokens.ErrWrongRawTx
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, "", err
	}
	signedTx, txHash, err := signer.Sign(string(tokens.FamilyEVM), from, common.ToHex(payload))
	if err != nil {
		return nil, "", err
	}
	return signedTx, txHash, nil
}
