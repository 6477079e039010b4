package entity

import (
	"strconv"
	"strings"
)

// Transaction represents a value transfer returned by a ledger source
type Transaction struct {
	Hash        string `json:"hash" yaml:"hash"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Value       string `json:"value" yaml:"value"`
	Timestamp   int64  `json:"timestamp" yaml:"timestamp"`
	BlockNumber *int64 `json:"blockNumber,omitempty" yaml:"block_number,omitempty"`
}

// NumericValue returns the transfer value as a float, treating unparsable values as zero
func (t *Transaction) NumericValue() float64 {
	return ParseValue(t.Value)
}

// ParseValue parses a decimal amount; empty or malformed input yields 0
func ParseValue(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return v
}

// TransactionDetail is the result of a lookup by hash
type TransactionDetail struct {
	Transaction
	Network string `json:"network"`
}
