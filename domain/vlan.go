package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VLANStatus represents the provisioning status of a VLAN.
type VLANStatus string

const (
	VLANStatusActive     VLANStatus = "active"
	VLANStatusReserved   VLANStatus = "reserved"
	VLANStatusDeprecated VLANStatus = "deprecated"
)

// VLAN represents an IEEE 802.1Q virtual LAN. VLAN IDs are unique within a
// group; the empty group acts as the default namespace.
type VLAN struct {
	ID          uuid.UUID  `json:"id"`
	VID         int        `json:"vid"` // 802.1Q VLAN ID.
	Name        string     `json:"name"`
	Group       string     `json:"group"`
	SiteID      *uuid.UUID `json:"site_id"`
	Status      VLANStatus `json:"status"`
	Role        string     `json:"role"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Created     time.Time  `json:"created"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Validate checks VLAN fields that do not require repository access.
func (v *VLAN) Validate() error {
	if v.VID < 1 || v.VID > 4094 {
		return fmt.Errorf("vlan id must be between 1 and 4094, got %d", v.VID)
	}
	if v.Name == "" {
		return errors.New("vlan name is required")
	}
	switch v.Status {
	case VLANStatusActive, VLANStatusReserved, VLANStatusDeprecated:
	default:
		return fmt.Errorf("invalid vlan status %q", v.Status)
	}
	return nil
}

// VLANFilter narrows ListVLANs results. Zero values are ignored.
type VLANFilter struct {
	Group  string
	SiteID uuid.UUID
	Status VLANStatus
	Role   string
	VID    int
	Tag    string
	Query  string
	Limit  int
	Offset int
}

// VLANRepository defines the interface for managing VLANs.
type VLANRepository interface {
	CreateVLAN(vlan *VLAN) error
	GetVLAN(id uuid.UUID) (*VLAN, error)
	ListVLANs(filter VLANFilter) ([]*VLAN, error)
	UpdateVLAN(vlan *VLAN) error
	DeleteVLAN(id uuid.UUID) error
}
