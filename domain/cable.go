package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CableStatus represents the installation status of a cable.
type CableStatus string

const (
	CableStatusConnected       CableStatus = "connected"
	CableStatusPlanned         CableStatus = "planned"
	CableStatusDecommissioning CableStatus = "decommissioning"
)

// CableType identifies the physical medium of a cable.
type CableType string

const (
	CableTypeCat5e CableType = "cat5e"
	CableTypeCat6  CableType = "cat6"
	CableTypeCat6a CableType = "cat6a"
	CableTypeDAC   CableType = "dac"
	CableTypeMMF   CableType = "mmf"
	CableTypeSMF   CableType = "smf"
	CableTypePower CableType = "power"
)

// Length units accepted on cables.
const (
	LengthUnitMeter      = "m"
	LengthUnitCentimeter = "cm"
	LengthUnitFoot       = "ft"
	LengthUnitInch       = "in"
)

// NormalizeLength converts a cable length to meters. The normalized value is
// stored alongside the original so cables can be ordered by length in the
// database regardless of the unit they were entered in.
func NormalizeLength(length float64, unit string) (float64, error) {
	if length < 0 {
		return 0, fmt.Errorf("cable length must not be negative, got %v", length)
	}
	switch unit {
	case LengthUnitMeter:
		return length, nil
	case LengthUnitCentimeter:
		return length / 100, nil
	case LengthUnitFoot:
		return length * 0.3048, nil
	case LengthUnitInch:
		return length * 0.0254, nil
	default:
		return 0, fmt.Errorf("unknown length unit %q", unit)
	}
}

// Cable connects exactly two interfaces. Each interface can terminate at most
// one cable.
type Cable struct {
	ID           uuid.UUID   `json:"id"`
	AInterfaceID uuid.UUID   `json:"a_interface_id"`
	BInterfaceID uuid.UUID   `json:"b_interface_id"`
	Type         CableType   `json:"type"`
	Status       CableStatus `json:"status"`
	Label        string      `json:"label"`
	Color        string      `json:"color"`  // RGB hex without the leading '#', e.g. "00ff00".
	Length       *float64    `json:"length"` // Length in the unit it was entered in.
	LengthUnit   string      `json:"length_unit"`
	AbsLength    *float64    `json:"abs_length"` // Length normalized to meters, for ordering.
	Tags         []string    `json:"tags"`
	Created      time.Time   `json:"created"`
	LastUpdated  time.Time   `json:"last_updated"`
}

// Validate checks cable fields that do not require repository access and
// fills in the normalized length.
func (c *Cable) Validate() error {
	if c.AInterfaceID == uuid.Nil || c.BInterfaceID == uuid.Nil {
		return errors.New("cable requires two terminations")
	}
	if c.AInterfaceID == c.BInterfaceID {
		return errors.New("cable cannot terminate on the same interface twice")
	}
	switch c.Status {
	case CableStatusConnected, CableStatusPlanned, CableStatusDecommissioning:
	default:
		return fmt.Errorf("invalid cable status %q", c.Status)
	}
	if c.Length != nil {
		abs, err := NormalizeLength(*c.Length, c.LengthUnit)
		if err != nil {
			return err
		}
		c.AbsLength = &abs
	} else {
		c.AbsLength = nil
	}
	return nil
}

// CableFilter narrows ListCables results. Zero values are ignored.
type CableFilter struct {
	InterfaceID uuid.UUID // Matches either termination.
	DeviceID    uuid.UUID // Matches cables terminating on any interface of the device.
	Status      CableStatus
	Type        CableType
	Tag         string
	Limit       int
	Offset      int
}

// CableRepository defines the interface for managing cables.
type CableRepository interface {
	CreateCable(cable *Cable) error
	GetCable(id uuid.UUID) (*Cable, error)
	// GetCableForInterface returns the cable terminating on the given
	// interface, if any.
	GetCableForInterface(interfaceID uuid.UUID) (*Cable, error)
	ListCables(filter CableFilter) ([]*Cable, error)
	UpdateCable(cable *Cable) error
	DeleteCable(id uuid.UUID) error
}
