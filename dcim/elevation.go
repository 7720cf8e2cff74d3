package dcim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

// UnitState describes what a rack unit holds when viewed from one face.
type UnitState string

const (
	// UnitEmpty units hold nothing on the viewed face.
	UnitEmpty UnitState = "empty"
	// UnitOccupied units are the anchor of a device mounted on the viewed
	// face; Span covers the units above it.
	UnitOccupied UnitState = "occupied"
	// UnitBlocked units are spanned by a device anchored lower, or taken up
	// by a full-depth device mounted on the opposite face.
	UnitBlocked UnitState = "blocked"
	// UnitReserved units are empty but held by a rack reservation.
	UnitReserved UnitState = "reserved"
)

// Unit is one rack unit of an elevation.
type Unit struct {
	ID     int            `json:"id"`
	State  UnitState      `json:"state"`
	Device *domain.Device `json:"device,omitempty"` // set for occupied and blocked units
	Span   int            `json:"span,omitempty"`   // units covered, set on the anchor only
}

// Elevation computes the per-unit occupancy of a rack as seen from one face,
// ordered top-down. Devices anchor at their position and span their type's
// height upward; full-depth devices block the opposite face as well.
// Reservations mark units that remain empty.
func Elevation(
	rack *domain.Rack,
	devices []*domain.Device,
	types map[uuid.UUID]*domain.DeviceType,
	reservations []*domain.RackReservation,
	face domain.DeviceFace,
) ([]*Unit, error) {
	if face != domain.FaceFront && face != domain.FaceRear {
		return nil, fmt.Errorf("invalid rack face %q", face)
	}

	units := make(map[int]*Unit, rack.UHeight)
	for _, id := range rack.Units() {
		units[id] = &Unit{ID: id, State: UnitEmpty}
	}

	for _, device := range devices {
		if device.RackID == nil || *device.RackID != rack.ID || device.Position == nil {
			continue
		}
		span := 1
		fullDepth := false
		if dt, ok := types[device.DeviceTypeID]; ok {
			span = dt.UHeight
			fullDepth = dt.IsFullDepth
		}
		if span < 1 {
			continue // zero-U devices occupy no elevation slots
		}

		onFace := device.Face == face
		if !onFace && !fullDepth {
			continue
		}

		for offset := 0; offset < span; offset++ {
			unit, ok := units[*device.Position+offset]
			if !ok {
				continue // device sticks out past the top of the rack
			}
			if onFace && offset == 0 {
				unit.State = UnitOccupied
				unit.Device = device
				unit.Span = span
			} else {
				unit.State = UnitBlocked
				unit.Device = device
			}
		}
	}

	for _, res := range reservations {
		if res.RackID != rack.ID {
			continue
		}
		for _, id := range res.Units {
			if unit, ok := units[id]; ok && unit.State == UnitEmpty {
				unit.State = UnitReserved
			}
		}
	}

	elevation := make([]*Unit, 0, rack.UHeight)
	for id := rack.UHeight; id >= 1; id-- {
		elevation = append(elevation, units[id])
	}
	return elevation, nil
}
