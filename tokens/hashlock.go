package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashlockModel a (secret, hash) pair where hash = SHA-256(secret).
// The secret is generated once per swap and revealed only at redeem time.
type HashlockModel struct {
	Secret string `json:"secret"` // 32 bytes, hex
	Hash   string `json:"hash"`   // 32 bytes, hex
}

// GenerateHashlock generate a fresh 32-byte secret and its SHA-256 hash
func GenerateHashlock() (*HashlockModel, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hash := sha256.Sum256(secret)
	return &HashlockModel{
		Secret: hex.EncodeToString(secret),
		Hash:   hex.EncodeToString(hash[:]),
	}, nil
}

// VerifyHashlock returns whether SHA-256(secret) equals hash.
func VerifyHashlock(secret, hash string) bool {
	secretBytes, err := hex.DecodeString(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return false
	}
	sum := sha256.Sum256(secretBytes)
	return strings.EqualFold(hex.EncodeToString(sum[:]), strings.TrimPrefix(hash, "0x"))
}
