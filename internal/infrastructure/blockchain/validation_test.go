package blockchain

import (
	"errors"
	"strings"
	"testing"

	"crypto-flow-tracer/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		network string
		address string
		wantErr bool
	}{
		{"valid lowercase", true, "ethereum", "0x742d35cc6634c0532925a3b844bc454e4438f44e", false},
		{"valid checksummed", true, "bsc", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", false},
		{"too short", true, "ethereum", "0x742d35", true},
		{"not hex", true, "polygon", "0xzz2d35cc6634c0532925a3b844bc454e4438f44e", true},
		{"empty", true, "ethereum", "", true},
		{"blank", false, "ethereum", "   ", true},
		{"non-evm network", true, "bitcoin", "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", false},
		{"lenient", false, "ethereum", "A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidator(tt.strict).ValidateAddress("address", tt.network, tt.address)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var invalid *entity.InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, "address", invalid.Field)
		})
	}
}

func TestValidateHash(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)

	v := NewValidator(true)
	assert.NoError(t, v.ValidateHash("ethereum", valid))
	assert.Error(t, v.ValidateHash("ethereum", "0xabc"))
	assert.Error(t, v.ValidateHash("ethereum", strings.Repeat("ab", 32)))
	assert.Error(t, v.ValidateHash("ethereum", ""))
	assert.NoError(t, v.ValidateHash("bitcoin", "deadbeef"))

	lenient := NewValidator(false)
	assert.NoError(t, lenient.ValidateHash("ethereum", "0xabc"))

	var invalid *entity.InvalidInputError
	require.True(t, errors.As(lenient.ValidateHash("ethereum", " "), &invalid))
	assert.Equal(t, "hash", invalid.Field)
}

func TestIsEVMNetwork(t *testing.T) {
	assert.True(t, IsEVMNetwork("Ethereum"))
	assert.True(t, IsEVMNetwork("polygon"))
	assert.False(t, IsEVMNetwork("solana"))
}
