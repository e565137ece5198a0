package common

import (
	"errors"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// FileExist checks if a file exists at filePath.
func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h Hash) {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}

// GetBigIntFromStr new big int from string.
func GetBigIntFromStr(str string) (*big.Int, error) {
	if str == "" {
		return nil, errors.New("empty number string")
	}
	base := 10
	if HasHexPrefix(str) {
		str = str[2:]
		base = 16
	}
	bi, ok := new(big.Int).SetString(str, base)
	if !ok {
		return nil, errors.New("invalid number string: " + str)
	}
	return bi, nil
}

// GetUint64FromStr new uint64 from string.
func GetUint64FromStr(str string) (uint64, error) {
	if HasHexPrefix(str) {
		res, err := strconv.ParseUint(str[2:], 16, 64)
		if err != nil {
			return 0, errors.New("invalid hex uint64 string: " + str)
		}
		return res, nil
	}
	res, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, errors.New("invalid uint64 string: " + str)
	}
	return res, nil
}

// MinUint64 get minimum value of x and y
func MinUint64(x, y uint64) uint64 {
	if x <= y {
		return x
	}
	return y
}

// MaxUint64 get maximum value of x and y
func MaxUint64(x, y uint64) uint64 {
	if x < y {
		return y
	}
	return x
}

// Now returns the current unix timestamp in seconds.
func Now() int64 {
	return time.Now().Unix()
}

// NowStr returns the string of current unix timestamp.
func NowStr() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// LowerKey normalize a (network, address) style composite key.
func LowerKey(parts ...string) string {
	return strings.ToLower(strings.Join(parts, ":"))
}
