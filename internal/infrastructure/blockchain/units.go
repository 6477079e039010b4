package blockchain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FormatUnits converts an integer amount in base units to a decimal string
// with the given number of decimals. Malformed input yields "0".
func FormatUnits(amount string, decimals int) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return "0"
	}
	if decimals <= 0 {
		return v.String()
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	s := new(big.Rat).SetFrac(v, scale).FloatString(decimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// HexToDecimal converts a 0x-prefixed quantity to base-10, or "0" when malformed
func HexToDecimal(hex string) string {
	v, err := hexutil.DecodeBig(hex)
	if err != nil {
		return "0"
	}
	return v.String()
}
