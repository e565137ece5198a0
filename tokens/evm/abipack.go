package evm

import (
	"fmt"
	"math/big"

	"github.com/crosslock/CrossChain-Solver/common"
)

// PackDataWithFuncHash pack data with 4-byte method selector
func PackDataWithFuncHash(funcHash []byte, args ...interface{}) []byte {
	packData := PackData(args...)
	bs := make([]byte, 4+len(packData))
	copy(bs[:4], funcHash)
	copy(bs[4:], packData)
	return bs
}

// PackData pack static abi arguments
func PackData(args ...interface{}) []byte {
	lenArgs := len(args)
	bs := make([]byte, lenArgs*32)
	for i, arg := range args {
		switch v := arg.(type) {
		case common.Hash:
			copy(bs[i*32:], v.Bytes())
		case common.Address:
			copy(bs[i*32:], v.Hash().Bytes())
		case *big.Int:
			copy(bs[i*32:(i+1)*32], packBigInt(v))
		case uint64:
			copy(bs[i*32:], packBigInt(new(big.Int).SetUint64(v)))
		case int64:
			copy(bs[i*32:], packBigInt(big.NewInt(v)))
		default:
			panic(fmt.Sprintf("unsupported to pack %v (%T)", v, v))
		}
	}
	return bs
}

func packBigInt(bi *big.Int) []byte {
	if bi == nil {
		bi = big.NewInt(0)
	}
	return common.LeftPadBytes(bi.Bytes(), 32)
}

// ---- unpacking of event data ----

func unpackBigInt(data []byte, offset int) (*big.Int, error) {
	if offset+32 > len(data) {
		return nil, fmt.Errorf("abi data too short, want word at %v have %v bytes", offset, len(data))
	}
	return new(big.Int).SetBytes(data[offset : offset+32]), nil
}

func unpackAddress(data []byte, offset int) (common.Address, error) {
	if offset+32 > len(data) {
		return common.Address{}, fmt.Errorf("abi data too short, want word at %v have %v bytes", offset, len(data))
	}
	return common.BytesToAddress(data[offset+12 : offset+32]), nil
}

func unpackString(data []byte, offset int) (string, error) {
	pos, err := unpackBigInt(data, offset)
	if err != nil {
		return "", err
	}
	start := int(pos.Int64())
	strLen, err := unpackBigInt(data, start)
	if err != nil {
		return "", err
	}
	length := int(strLen.Int64())
	if start+32+length > len(data) {
		return "", fmt.Errorf("abi string out of bounds at %v len %v", start, length)
	}
	return string(data[start+32 : start+32+length]), nil
}
