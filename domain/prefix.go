package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// PrefixStatus represents the role of a prefix in the address plan.
type PrefixStatus string

const (
	// PrefixStatusContainer marks a prefix that only aggregates child
	// prefixes; its utilization is measured by child coverage.
	PrefixStatusContainer  PrefixStatus = "container"
	PrefixStatusActive     PrefixStatus = "active"
	PrefixStatusReserved   PrefixStatus = "reserved"
	PrefixStatusDeprecated PrefixStatus = "deprecated"
)

// Prefix represents an IPv4 or IPv6 network. Prefixes nest by containment
// within a VRF, forming the address hierarchy.
type Prefix struct {
	ID           uuid.UUID      `json:"id"`
	Prefix       netip.Prefix   `json:"prefix"`
	VRF          string         `json:"vrf"` // Empty means the global routing table.
	SiteID       *uuid.UUID     `json:"site_id"`
	VLANID       *uuid.UUID     `json:"vlan_id"`
	Status       PrefixStatus   `json:"status"`
	Role         string         `json:"role"`    // Functional role, e.g. "loopbacks", "point-to-point".
	IsPool       bool           `json:"is_pool"` // Pools hand out every address, including network/broadcast.
	Description  string         `json:"description"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	Created      time.Time      `json:"created"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Validate checks prefix fields that do not require repository access.
// The prefix is normalized to its masked form.
func (p *Prefix) Validate() error {
	if !p.Prefix.IsValid() {
		return errors.New("prefix is not a valid network")
	}
	p.Prefix = p.Prefix.Masked()
	switch p.Status {
	case PrefixStatusContainer, PrefixStatusActive, PrefixStatusReserved, PrefixStatusDeprecated:
	default:
		return fmt.Errorf("invalid prefix status %q", p.Status)
	}
	return nil
}

// PrefixFilter narrows ListPrefixes results. Zero values are ignored.
type PrefixFilter struct {
	VRF      string
	VRFSet   bool // Distinguishes "global table" from "any VRF".
	SiteID   uuid.UUID
	VLANID   uuid.UUID
	Status   PrefixStatus
	Role     string
	Family   int // 4 or 6.
	Contains string // A prefix or address the results must contain.
	Tag      string
	Query    string
	Limit    int
	Offset   int
}

// PrefixRepository defines the interface for managing prefixes.
type PrefixRepository interface {
	CreatePrefix(prefix *Prefix) error
	GetPrefix(id uuid.UUID) (*Prefix, error)
	ListPrefixes(filter PrefixFilter) ([]*Prefix, error)
	// ListChildPrefixes returns the prefixes contained within the given
	// prefix in the same VRF, excluding the prefix itself.
	ListChildPrefixes(prefix *Prefix) ([]*Prefix, error)
	UpdatePrefix(prefix *Prefix) error
	DeletePrefix(id uuid.UUID) error
}
