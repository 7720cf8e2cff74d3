package db

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"
)

// Fields represents a flexible key-value store for custom field data, stored
// as JSON in the database. It implements the sql.Scanner and driver.Valuer
// interfaces to handle database serialization.
type Fields map[string]any

// Scan implements the sql.Scanner interface, allowing Fields to be read from
// the database.
func (f *Fields) Scan(value interface{}) error {
	if value == nil {
		*f = make(Fields)
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

// Value implements the driver.Valuer interface, allowing Fields to be written
// to the database.
func (f Fields) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "{}", nil
	}
	return json.Marshal(f)
}

// StringList stores a list of strings (tags, object kinds) as a JSON array.
type StringList []string

// Scan implements the sql.Scanner interface.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

// Value implements the driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

// IntList stores a list of integers (rack reservation units) as a JSON array.
type IntList []int

// Scan implements the sql.Scanner interface.
func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

// Value implements the driver.Valuer interface.
func (l IntList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal(l)
}

// HeaderMap stores webhook headers as a JSON object.
type HeaderMap map[string]string

// Scan implements the sql.Scanner interface.
func (h *HeaderMap) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

// Value implements the driver.Valuer interface.
func (h HeaderMap) Value() (driver.Value, error) {
	if len(h) == 0 {
		return "{}", nil
	}
	return json.Marshal(h)
}

// ipKey encodes an address as a 32-digit hex string. IPv4 addresses use their
// IPv4-in-IPv6 mapped form, so keys of the same family order correctly and
// containment checks reduce to lexicographic comparison.
func ipKey(addr netip.Addr) string {
	b := addr.As16()
	return hex.EncodeToString(b[:])
}

// rangeKeys returns the ipKey bounds of a prefix: the network address and the
// last address of the block.
func rangeKeys(p netip.Prefix) (start, end string) {
	first := p.Masked().Addr()
	last := lastAddr(p)
	return ipKey(first), ipKey(last)
}

// lastAddr computes the highest address contained in the prefix.
func lastAddr(p netip.Prefix) netip.Addr {
	b := p.Masked().Addr().As16()
	bits := p.Bits()
	// Offset of the prefix within the 128-bit mapped space.
	if p.Addr().Is4() {
		bits += 96
	}
	for i := bits; i < 128; i++ {
		b[i/8] |= 1 << (7 - i%8)
	}
	addr := netip.AddrFrom16(b)
	if p.Addr().Is4() {
		return addr.Unmap()
	}
	return addr
}
