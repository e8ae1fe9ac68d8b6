// Package catalog provides the fixed-capacity in-memory store of tagged items.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Capacity is the number of slots in the catalog.
	Capacity = 50

	// MinIDLen and MaxIDLen bound the tag identifier length in bytes.
	// MIFARE UIDs are 4, 7 or 10 bytes.
	MinIDLen = 4
	MaxIDLen = 10

	// MaxNameLen is the longest stored item name, excluding the NUL
	// terminator the on-flash layout reserves.
	MaxNameLen = 31
)

var (
	ErrFull        = errors.New("catalog full")
	ErrDuplicate   = errors.New("tag already cataloged")
	ErrNotFound    = errors.New("tag not cataloged")
	ErrInvalidName = errors.New("invalid name")
	ErrInvalidID   = errors.New("invalid tag id")
)

// Record is a single catalog slot. A slot with Live == false is free and its
// remaining fields are stale.
type Record struct {
	ID   []byte
	Name string
	Live bool
}

// FormatID renders a tag identifier as uppercase hex byte pairs joined by
// colons, e.g. "04:A1:B2:C3". This is both the display form and the wire form
// used by the delete endpoint.
func FormatID(id []byte) string {
	parts := make([]string, len(id))
	for i, b := range id {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// ParseID parses the colon-hex form produced by FormatID. Case-insensitive.
func ParseID(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidID
	}
	parts := strings.Split(s, ":")
	if len(parts) < MinIDLen || len(parts) > MaxIDLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidID, len(parts))
	}
	id := make([]byte, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
		// Both characters must be hex digits; ParseUint rejects signs
		// and 0x prefixes with an explicit base.
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
		id[i] = byte(b)
	}
	return id, nil
}

// validID checks the length bound of a raw tag identifier.
func validID(id []byte) bool {
	return len(id) >= MinIDLen && len(id) <= MaxIDLen
}

// validName checks the name bound. Empty names are never stored.
func validName(name string) bool {
	return name != "" && len(name) <= MaxNameLen
}
