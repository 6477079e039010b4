package entity

import "fmt"

// InvalidInputError is returned when a public entry point receives malformed input
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FetchError is returned by a ledger source that could not produce data
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a transaction lookup finds nothing
type NotFoundError struct {
	Hash string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction not found: %s", e.Hash)
}

// UnsupportedFormatError is returned for an unknown export format token
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %q", e.Format)
}
