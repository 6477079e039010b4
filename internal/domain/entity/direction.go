package entity

import (
	"fmt"
	"strings"
)

// Direction selects which edges a traversal emits and follows
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

// ParseDirection parses a direction token, case-insensitively
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionIn:
		return DirectionIn, nil
	case DirectionOut:
		return DirectionOut, nil
	case DirectionBoth, "":
		return DirectionBoth, nil
	default:
		return "", &InvalidInputError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", s)}
	}
}

// FollowsOutgoing reports whether outgoing edges are emitted
func (d Direction) FollowsOutgoing() bool {
	return d == DirectionOut || d == DirectionBoth
}

// FollowsIncoming reports whether incoming edges are emitted
func (d Direction) FollowsIncoming() bool {
	return d == DirectionIn || d == DirectionBoth
}

// Classification tags a transaction relative to the address being expanded
type Classification int

const (
	ClassNeither Classification = iota
	ClassOutgoing
	ClassIncoming
	// ClassBoth is a self-transfer: the address is sender and receiver
	ClassBoth
)

// String returns the string representation of the Classification
func (c Classification) String() string {
	switch c {
	case ClassOutgoing:
		return "outgoing"
	case ClassIncoming:
		return "incoming"
	case ClassBoth:
		return "both"
	default:
		return "neither"
	}
}

// IsOutgoing reports whether the address sent the transaction
func (c Classification) IsOutgoing() bool {
	return c == ClassOutgoing || c == ClassBoth
}

// IsIncoming reports whether the address received the transaction
func (c Classification) IsIncoming() bool {
	return c == ClassIncoming || c == ClassBoth
}

// Classify tags tx relative to address by case-insensitive endpoint match
func Classify(tx *Transaction, address string) Classification {
	out := SameAddress(tx.From, address)
	in := SameAddress(tx.To, address)
	switch {
	case out && in:
		return ClassBoth
	case out:
		return ClassOutgoing
	case in:
		return ClassIncoming
	default:
		return ClassNeither
	}
}
