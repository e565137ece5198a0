package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateHashlock(t *testing.T) {
	model, err := GenerateHashlock()
	assert.NoError(t, err)

	secret, err := hex.DecodeString(model.Secret)
	assert.NoError(t, err)
	assert.Len(t, secret, 32)

	sum := sha256.Sum256(secret)
	assert.Equal(t, hex.EncodeToString(sum[:]), model.Hash)
	assert.True(t, VerifyHashlock(model.Secret, model.Hash))
}

func TestGenerateHashlockIsFresh(t *testing.T) {
	a, err := GenerateHashlock()
	assert.NoError(t, err)
	b, err := GenerateHashlock()
	assert.NoError(t, err)
	assert.NotEqual(t, a.Secret, b.Secret)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestVerifyHashlockRejectsWrongSecret(t *testing.T) {
	model, err := GenerateHashlock()
	assert.NoError(t, err)

	other, err := GenerateHashlock()
	assert.NoError(t, err)

	assert.False(t, VerifyHashlock(other.Secret, model.Hash))
	assert.False(t, VerifyHashlock("not-hex", model.Hash))
	assert.True(t, VerifyHashlock("0x"+model.Secret, model.Hash))
}
