package export

import (
	"strings"

	"crypto-flow-tracer/internal/domain/entity"
)

// Format is an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatDot  Format = "dot"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format token before any output is produced
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatDot, FormatCSV:
		return f, nil
	default:
		return "", &entity.UnsupportedFormatError{Format: s}
	}
}

// Extension returns the conventional file extension for the format
func (f Format) Extension() string {
	switch f {
	case FormatDot:
		return ".dot"
	case FormatCSV:
		return ".csv"
	default:
		return ".json"
	}
}
