package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"123456", 0, "123456"},
		{"2500000", 6, "2.5"},
		{"garbage", 18, "0"},
		{"", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUnits(tt.amount, tt.decimals))
		})
	}
}

func TestHexToDecimal(t *testing.T) {
	assert.Equal(t, "1000000000000000000", HexToDecimal("0xde0b6b3a7640000"))
	assert.Equal(t, "0", HexToDecimal("0x0"))
	assert.Equal(t, "0", HexToDecimal("nothex"))
}
