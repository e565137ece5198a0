package evm

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crosslock/CrossChain-Solver/common"
	"github.com/crosslock/CrossChain-Solver/tokens"
)

func TestPackDataWithFuncHash(t *testing.T) {
	data := PackDataWithFuncHash(funcHashRedeem,
		common.HexToHash("0x"+strings.Repeat("11", 32)),
		common.HexToHash("0x"+strings.Repeat("22", 32)),
	)
	assert.Equal(t, 4+2*32, len(data))
	assert.Equal(t, funcHashRedeem, data[:4])
	assert.Equal(t, common.HexToHash("0x"+strings.Repeat("11", 32)).Bytes(), data[4:36])
	assert.Equal(t, common.HexToHash("0x"+strings.Repeat("22", 32)).Bytes(), data[36:68])
}

func TestPackBigIntPadding(t *testing.T) {
	data := PackData(big.NewInt(255), uint64(1))
	assert.Equal(t, 64, len(data))
	assert.Equal(t, byte(0xff), data[31])
	assert.Equal(t, byte(0x01), data[63])
}

func TestBuildRedeemTransaction(t *testing.T) {
	network := &tokens.Network{
		Name:         "testnet",
		Family:       tokens.FamilyEVM,
		NativeToken:  "ETH",
		HTLCContract: "0x1111111111111111111111111111111111111111",
		Tokens:       []*tokens.Token{{Symbol: "ETH", Decimals: 18}},
	}
	adapter := NewAdapter()
	args := &tokens.BuildTxArgs{
		TxType:  tokens.HTLCRedeemTx,
		SwapID:  "0x" + strings.Repeat("ab", 32),
		Secret:  "0x" + strings.Repeat("cd", 32),
		Network: "testnet",
		From:    "0x2222222222222222222222222222222222222222",
	}
	rawTx, err := adapter.BuildTransaction(network, args)
	assert.NoError(t, err)
	tx, ok := rawTx.(*UnsignedTx)
	assert.True(t, ok)
	assert.Equal(t, network.HTLCContract, tx.To)
	assert.True(t, strings.HasPrefix(tx.Data, common.ToHex(funcHashRedeem)))
}

func TestBuildRedeemRejectsBadSecret(t *testing.T) {
	network := &tokens.Network{
		Name:         "testnet",
		Family:       tokens.FamilyEVM,
		HTLCContract: "0x1111111111111111111111111111111111111111",
	}
	args := &tokens.BuildTxArgs{
		TxType:  tokens.HTLCRedeemTx,
		SwapID:  "0x" + strings.Repeat("ab", 32),
		Secret:  "0xshort",
		Network: "testnet",
	}
	_, err := NewAdapter().BuildTransaction(network, args)
	assert.Equal(t, tokens.ErrWrongHashlock, err)
}

func TestBuildLockNativeValueIncludesReward(t *testing.T) {
	network := &tokens.Network{
		Name:         "testnet",
		Family:       tokens.FamilyEVM,
		NativeToken:  "ETH",
		HTLCContract: "0x1111111111111111111111111111111111111111",
		Tokens:       []*tokens.Token{{Symbol: "ETH", Decimals: 18}},
	}
	args := &tokens.BuildTxArgs{
		TxType:   tokens.HTLCLockTx,
		SwapID:   "0x" + strings.Repeat("ab", 32),
		Hashlock: "0x" + strings.Repeat("ef", 32),
		Network:  "testnet",
		From:     "0x2222222222222222222222222222222222222222",
		Value:    big.NewInt(1000),
		Reward:   big.NewInt(5),
		Timelock: 1700000000,
	}
	rawTx, err := NewAdapter().BuildTransaction(network, args)
	assert.NoError(t, err)
	tx := rawTx.(*UnsignedTx)
	assert.Equal(t, big.NewInt(1005), tx.Value)
}

func TestDecodeTokenLocked(t *testing.T) {
	hashlock := "0x" + strings.Repeat("aa", 32)
	data := make([]byte, 64)
	copy(data[:32], common.HexToHash(hashlock).Bytes())
	copy(data[32:], common.LeftPadBytes(big.NewInt(1700001234).Bytes(), 32))
	rpcLog := &RPCLog{
		Topics: []string{topicTokenLocked.Hex(), "0x" + strings.Repeat("bb", 32)},
		Data:   common.ToHex(data),
		TxHash: "0xdeadbeef",
	}
	event, err := decodeTokenLocked(rpcLog, 42)
	assert.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("bb", 32), event.CommitID)
	assert.Equal(t, hashlock, event.Hashlock)
	assert.Equal(t, int64(1700001234), event.Timelock)
	assert.Equal(t, uint64(42), event.BlockHeight)
}

func TestDecodeTokenCommitted(t *testing.T) {
	// data layout: sender, amount, timelock, then three dynamic strings
	var buf []byte
	appendWord := func(b []byte) { buf = append(buf, common.LeftPadBytes(b, 32)...) }
	sender := common.HexToAddress("0x3333333333333333333333333333333333333333")
	appendWord(sender.Bytes())
	appendWord(big.NewInt(777).Bytes())
	appendWord(big.NewInt(1700009999).Bytes())
	// string head offsets, tails start after the 6 head words
	strs := []string{"solana", "SOL", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"}
	offset := 6 * 32
	tails := make([]byte, 0, 3*64)
	for _, s := range strs {
		appendWord(big.NewInt(int64(offset + len(tails))).Bytes())
		tail := common.LeftPadBytes(big.NewInt(int64(len(s))).Bytes(), 32)
		padded := make([]byte, (len(s)+31)/32*32)
		copy(padded, s)
		tails = append(tails, append(tail, padded...)...)
	}
	buf = append(buf, tails...)

	rpcLog := &RPCLog{
		Topics: []string{
			topicTokenCommitted.Hex(),
			"0x" + strings.Repeat("cc", 32),
			common.HexToAddress("0x4444444444444444444444444444444444444444").Hash().Hex(),
		},
		Data:   common.ToHex(buf),
		TxHash: "0xfeedface",
	}
	event, err := decodeTokenCommitted(rpcLog, 100, 1700000000)
	assert.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("cc", 32), event.CommitID)
	assert.Equal(t, sender.Hex(), event.Sender)
	assert.Equal(t, "0x4444444444444444444444444444444444444444", event.Receiver)
	assert.Equal(t, big.NewInt(777), event.Amount)
	assert.Equal(t, int64(1700009999), event.Timelock)
	assert.Equal(t, "solana", event.DstNetwork)
	assert.Equal(t, "SOL", event.DstAsset)
	assert.Equal(t, strs[2], event.DstAddress)
	assert.Equal(t, uint64(1700000000), event.Timestamp)
}
