package blockchain

import (
	"strings"

	"crypto-flow-tracer/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// evmNetworks use 20-byte hex addresses and 32-byte hashes
var evmNetworks = map[string]bool{
	"ethereum":  true,
	"bsc":       true,
	"polygon":   true,
	"arbitrum":  true,
	"optimism":  true,
	"base":      true,
	"avalanche": true,
}

// IsEVMNetwork reports whether network uses EVM address and hash formats
func IsEVMNetwork(network string) bool {
	return evmNetworks[strings.ToLower(network)]
}

// Validator checks address and hash syntax for a network
type Validator struct {
	strict bool
}

// NewValidator creates a validator; with strict unset only emptiness is checked
func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict}
}

// ValidateAddress returns an *entity.InvalidInputError for a malformed address
func (v *Validator) ValidateAddress(field, network, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return &entity.InvalidInputError{Field: field, Reason: "address must not be empty"}
	}
	if v.strict && IsEVMNetwork(network) && !common.IsHexAddress(address) {
		return &entity.InvalidInputError{Field: field, Reason: "not a valid " + strings.ToLower(network) + " address: " + address}
	}
	return nil
}

// ValidateHash returns an *entity.InvalidInputError for a malformed transaction hash
func (v *Validator) ValidateHash(network, hash string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &entity.InvalidInputError{Field: "hash", Reason: "transaction hash must not be empty"}
	}
	if v.strict && IsEVMNetwork(network) {
		b, err := hexutil.Decode(hash)
		if err != nil || len(b) != common.HashLength {
			return &entity.InvalidInputError{Field: "hash", Reason: "not a valid " + strings.ToLower(network) + " transaction hash: " + hash}
		}
	}
	return nil
}
