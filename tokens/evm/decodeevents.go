package evm

import (
	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/log"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

// GetBlockEvents implements tokens.ChainAdapter. Decodes the HTLC
// contract's TokenCommitted and TokenLocked logs of one block.
func (a *Adapter) GetBlockEvents(network *tokens.Network, height uint64) (*tokens.BlockEvents, error) {
	if network.HTLCContract == "" {
		return &tokens.BlockEvents{}, nil
	}
	logs, err := a.getContractLogs(network, height, []string{
		topicTokenCommitted.Hex(),
		topicTokenLocked.Hex(),
	})
	if err != nil {
		return nil, err
	}
	events := &tokens.BlockEvents{}
	var blockTime uint64
	for _, rpcLog := range logs {
		if rpcLog.Removed || len(rpcLog.Topics) == 0 {
			continue
		}
		switch common.HexToHash(rpcLog.Topics[0]) {
		case topicTokenCommitted:
			if blockTime == 0 {
				// one timestamp lookup per block that has commits
				blockTime, _ = a.getBlockTime(network, height)
			}
			event, errD := decodeTokenCommitted(rpcLog, height, blockTime)
			if errD != nil {
				log.Warn("[evm] skip undecodable TokenCommitted log", "txHash", rpcLog.TxHash, "err", errD)
				continue
			}
			events.CommitEvents = append(events.CommitEvents, event)
		case topicTokenLocked:
			event, errD := decodeTokenLocked(rpcLog, height)
			if errD != nil {
				log.Warn("[evm] skip undecodable TokenLocked log", "txHash", rpcLog.TxHash, "err", errD)
				continue
			}
			events.LockEvents = append(events.LockEvents, event)
		}
	}
	return events, nil
}

// decodeTokenCommitted
// TokenCommitted(bytes32 indexed id, address indexed receiver,
// address sender, uint256 amount, uint256 timelock,
// string dstChain, string dstAsset, string dstAddress)
// The event carries no source asset field, the HTLC contract only takes
// native coin deposits. SrcAsset stays empty and the listener resolves
// it to the network's native token.
func decodeTokenCommitted(rpcLog *RPCLog, height, blockTime uint64) (*tokens.CommitEvent, error) {
	if len(rpcLog.Topics) < 3 {
		return nil, tokens.ErrWrongCommitID
	}
	data := common.FromHex(rpcLog.Data)
	sender, err := unpackAddress(data, 0)
	if err != nil {
		return nil, err
	}
	amount, err := unpackBigInt(data, 32)
	if err != nil {
		return nil, err
	}
	timelock, err := unpackBigInt(data, 64)
	if err != nil {
		return nil, err
	}
	dstChain, err := unpackString(data, 96)
	if err != nil {
		return nil, err
	}
	dstAsset, err := unpackString(data, 128)
	if err != nil {
		return nil, err
	}
	dstAddress, err := unpackString(data, 160)
	if err != nil {
		return nil, err
	}
	return &tokens.CommitEvent{
		CommitID:    common.HexToHash(rpcLog.Topics[1]).Hex(),
		TxHash:      rpcLog.TxHash,
		BlockHeight: height,
		Timestamp:   blockTime,
		Sender:      sender.Hex(),
		Receiver:    common.BytesToAddress(common.HexToHash(rpcLog.Topics[2]).Bytes()[12:]).Hex(),
		Amount:      amount,
		DstNetwork:  dstChain,
		DstAsset:    dstAsset,
		DstAddress:  dstAddress,
		Timelock:    timelock.Int64(),
	}, nil
}

// decodeTokenLocked
// TokenLocked(bytes32 indexed id, bytes32 hashlock, uint256 timelock)
func decodeTokenLocked(rpcLog *RPCLog, height uint64) (*tokens.LockEvent, error) {
	if len(rpcLog.Topics) < 2 {
		return nil, tokens.ErrWrongCommitID
	}
	data := common.FromHex(rpcLog.Data)
	if len(data) < 64 {
		return nil, tokens.ErrWrongHashlock
	}
	timelock, err := unpackBigInt(data, 32)
	if err != nil {
		return nil, err
	}
	return &tokens.LockEvent{
		CommitID:    common.HexToHash(rpcLog.Topics[1]).Hex(),
		TxHash:      rpcLog.TxHash,
		BlockHeight: height,
		Hashlock:    common.BytesToHash(data[:32]).Hex(),
		Timelock:    timelock.Int64(),
	}, nil
}
