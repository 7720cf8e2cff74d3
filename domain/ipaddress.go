package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// IPStatus represents the allocation status of an IP address.
type IPStatus string

const (
	IPStatusActive     IPStatus = "active"
	IPStatusReserved   IPStatus = "reserved"
	IPStatusDeprecated IPStatus = "deprecated"
	IPStatusDHCP       IPStatus = "dhcp"
)

// IPRole identifies a special function of an IP address.
type IPRole string

const (
	IPRoleLoopback  IPRole = "loopback"
	IPRoleSecondary IPRole = "secondary"
	IPRoleAnycast   IPRole = "anycast"
	IPRoleVIP       IPRole = "vip"
	IPRoleVRRP      IPRole = "vrrp"
)

// IPAddress represents an individual IPv4 or IPv6 address with its mask,
// optionally assigned to a device interface.
type IPAddress struct {
	ID          uuid.UUID    `json:"id"`
	Address     netip.Prefix `json:"address"` // Host address with its subnet mask, e.g. 10.0.0.5/24.
	VRF         string       `json:"vrf"`
	Status      IPStatus     `json:"status"`
	Role        IPRole       `json:"role"` // Empty for ordinary addresses.
	InterfaceID *uuid.UUID   `json:"interface_id"`
	DNSName     string       `json:"dns_name"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Created     time.Time    `json:"created"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Validate checks address fields that do not require repository access.
func (ip *IPAddress) Validate() error {
	if !ip.Address.IsValid() {
		return errors.New("ip address is not valid")
	}
	if ip.Address.Addr().Is4() && ip.Address.Bits() > 32 {
		return fmt.Errorf("ipv4 mask /%d is out of range", ip.Address.Bits())
	}
	switch ip.Status {
	case IPStatusActive, IPStatusReserved, IPStatusDeprecated, IPStatusDHCP:
	default:
		return fmt.Errorf("invalid ip status %q", ip.Status)
	}
	switch ip.Role {
	case "", IPRoleLoopback, IPRoleSecondary, IPRoleAnycast, IPRoleVIP, IPRoleVRRP:
	default:
		return fmt.Errorf("invalid ip role %q", ip.Role)
	}
	return nil
}

// IPAddressFilter narrows ListIPAddresses results. Zero values are ignored.
type IPAddressFilter struct {
	VRF         string
	VRFSet      bool
	Status      IPStatus
	Role        IPRole
	InterfaceID uuid.UUID
	DeviceID    uuid.UUID // Addresses assigned to any interface of the device.
	Parent      string    // A prefix the addresses must fall within.
	Family      int
	Tag         string
	Query       string // Substring match on address text and dns name.
	Limit       int
	Offset      int
}

// IPAddressRepository defines the interface for managing IP addresses.
type IPAddressRepository interface {
	CreateIPAddress(ip *IPAddress) error
	GetIPAddress(id uuid.UUID) (*IPAddress, error)
	ListIPAddresses(filter IPAddressFilter) ([]*IPAddress, error)
	// ListIPsInPrefix returns addresses in the given VRF that fall inside
	// the prefix.
	ListIPsInPrefix(prefix *Prefix) ([]*IPAddress, error)
	UpdateIPAddress(ip *IPAddress) error
	DeleteIPAddress(id uuid.UUID) error
}
