package domain

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// InterfaceKind classifies a device termination. Besides network interfaces
// this covers console and power connections as well as the front/rear ports
// of patch panels, which pass a signal through to a paired port.
type InterfaceKind string

const (
	InterfacePhysical InterfaceKind = "physical"
	InterfaceVirtual  InterfaceKind = "virtual"
	InterfaceLAG      InterfaceKind = "lag"
	InterfaceConsole  InterfaceKind = "console"
	InterfacePower    InterfaceKind = "power"
	InterfaceFront    InterfaceKind = "front"
	InterfaceRear     InterfaceKind = "rear"
)

// Interface represents a termination on a device: a network interface, a
// console or power connection, or one side of a pass-through patch port.
type Interface struct {
	ID           uuid.UUID     `json:"id"`
	DeviceID     uuid.UUID     `json:"device_id"`
	Name         string        `json:"name"` // Unique within the device.
	Kind         InterfaceKind `json:"kind"`
	Enabled      bool          `json:"enabled"`
	MTU          *int          `json:"mtu"`
	MACAddress   string        `json:"mac_address"`
	MgmtOnly     bool          `json:"mgmt_only"`      // Management-only interfaces carry no production traffic.
	PairedPortID *uuid.UUID    `json:"paired_port_id"` // For front/rear ports: the opposite side of the pass-through.
	Description  string        `json:"description"`
}

// Validate checks interface fields that do not require repository access.
func (i *Interface) Validate() error {
	if i.Name == "" {
		return errors.New("interface name is required")
	}
	if i.DeviceID == uuid.Nil {
		return errors.New("interface must belong to a device")
	}
	switch i.Kind {
	case InterfacePhysical, InterfaceVirtual, InterfaceLAG,
		InterfaceConsole, InterfacePower, InterfaceFront, InterfaceRear:
	default:
		return fmt.Errorf("invalid interface kind %q", i.Kind)
	}
	if i.PairedPortID != nil && i.Kind != InterfaceFront && i.Kind != InterfaceRear {
		return fmt.Errorf("only front and rear ports can be paired, kind is %q", i.Kind)
	}
	if i.MACAddress != "" {
		if _, err := net.ParseMAC(i.MACAddress); err != nil {
			return fmt.Errorf("parsing mac address %q: %w", i.MACAddress, err)
		}
	}
	if i.MTU != nil && (*i.MTU < 1 || *i.MTU > 65536) {
		return fmt.Errorf("mtu must be between 1 and 65536, got %d", *i.MTU)
	}
	return nil
}

// PassThrough reports whether the interface forwards a signal to a paired
// port rather than terminating it.
func (i *Interface) PassThrough() bool {
	return (i.Kind == InterfaceFront || i.Kind == InterfaceRear) && i.PairedPortID != nil
}

// InterfaceFilter narrows ListInterfaces results. Zero values are ignored.
type InterfaceFilter struct {
	DeviceID uuid.UUID
	Kind     InterfaceKind
	Name     string // Exact name match.
	Query    string
	Limit    int
	Offset   int
}

// InterfaceRepository defines the interface for managing device terminations.
type InterfaceRepository interface {
	CreateInterface(iface *Interface) error
	GetInterface(id uuid.UUID) (*Interface, error)
	ListInterfaces(filter InterfaceFilter) ([]*Interface, error)
	UpdateInterface(iface *Interface) error
	DeleteInterface(id uuid.UUID) error
}
