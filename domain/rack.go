package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// RackStatus represents the lifecycle status of a rack.
type RackStatus string

const (
	RackStatusActive          RackStatus = "active"
	RackStatusPlanned         RackStatus = "planned"
	RackStatusReserved        RackStatus = "reserved"
	RackStatusDeprecated      RackStatus = "deprecated"
	RackStatusDecommissioning RackStatus = "decommissioning"
)

// rackWidths are the rail-to-rail widths (in inches) a rack may have.
var rackWidths = []int{10, 19, 21, 23}

// Rack represents an equipment rack within a site. Devices are mounted into
// racks at a unit position counted from the bottom, starting at 1.
type Rack struct {
	ID           uuid.UUID      `json:"id"`
	SiteID       uuid.UUID      `json:"site_id"`
	Name         string         `json:"name"` // Unique within the site.
	Status       RackStatus     `json:"status"`
	Role         string         `json:"role"`     // Functional role, e.g. "compute", "network".
	UHeight      int            `json:"u_height"` // Height in rack units.
	Width        int            `json:"width"`    // Rail-to-rail width in inches.
	Description  string         `json:"description"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	Created      time.Time      `json:"created"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Validate checks rack fields that do not require repository access.
func (r *Rack) Validate() error {
	if r.Name == "" {
		return errors.New("rack name is required")
	}
	if r.SiteID == uuid.Nil {
		return errors.New("rack must belong to a site")
	}
	if r.UHeight < 1 || r.UHeight > 100 {
		return fmt.Errorf("rack height must be between 1U and 100U, got %d", r.UHeight)
	}
	if !slices.Contains(rackWidths, r.Width) {
		return fmt.Errorf("rack width must be one of %v inches, got %d", rackWidths, r.Width)
	}
	switch r.Status {
	case RackStatusActive, RackStatusPlanned, RackStatusReserved,
		RackStatusDeprecated, RackStatusDecommissioning:
	default:
		return fmt.Errorf("invalid rack status %q", r.Status)
	}
	return nil
}

// Units returns the unit numbers of the rack from bottom to top.
func (r *Rack) Units() []int {
	units := make([]int, r.UHeight)
	for i := range units {
		units[i] = i + 1
	}
	return units
}

// RackReservation marks one or more units of a rack as reserved for future
// use. Reserved units remain empty in the elevation but are flagged so that
// new devices are not planned into them.
type RackReservation struct {
	ID          uuid.UUID `json:"id"`
	RackID      uuid.UUID `json:"rack_id"`
	Units       []int     `json:"units"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"` // Actor who placed the reservation.
	Created     time.Time `json:"created"`
}

// Validate checks that the reservation covers at least one unit inside the
// given rack.
func (rr *RackReservation) Validate(rack *Rack) error {
	if len(rr.Units) == 0 {
		return errors.New("reservation must cover at least one unit")
	}
	for _, u := range rr.Units {
		if u < 1 || u > rack.UHeight {
			return fmt.Errorf("unit %d does not exist in a %dU rack", u, rack.UHeight)
		}
	}
	return nil
}

// Overlaps reports an error when any of the reservation's units is already
// held by another reservation on the same rack.
func (rr *RackReservation) Overlaps(existing []*RackReservation) error {
	for _, other := range existing {
		if other.ID == rr.ID || other.RackID != rr.RackID {
			continue
		}
		for _, u := range other.Units {
			if slices.Contains(rr.Units, u) {
				return fmt.Errorf("unit %d is already reserved", u)
			}
		}
	}
	return nil
}

// RackFilter narrows ListRacks results. Zero values are ignored.
type RackFilter struct {
	SiteID uuid.UUID
	Status RackStatus
	Role   string
	Tag    string
	Query  string
	Limit  int
	Offset int
}

// RackRepository defines the interface for managing racks and their
// reservations.
type RackRepository interface {
	CreateRack(rack *Rack) error
	GetRack(id uuid.UUID) (*Rack, error)
	ListRacks(filter RackFilter) ([]*Rack, error)
	UpdateRack(rack *Rack) error
	DeleteRack(id uuid.UUID) error

	CreateRackReservation(res *RackReservation) error
	ListRackReservations(rackID uuid.UUID) ([]*RackReservation, error)
	DeleteRackReservation(id uuid.UUID) error
}
