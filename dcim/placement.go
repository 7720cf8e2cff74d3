package dcim

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

// ErrPlacement marks a mounting that does not fit the rack or collides with
// a device already mounted there.
var ErrPlacement = errors.New("invalid rack placement")

// CheckPlacement verifies that a positioned device fits inside its rack and
// does not overlap another mounted device. A device spans its type's height
// upward from its position; devices on the opposite face collide only when
// either one is full depth. Unpositioned and zero-U devices always pass.
func CheckPlacement(
	device *domain.Device,
	deviceType *domain.DeviceType,
	rack *domain.Rack,
	mounted []*domain.Device,
	types map[uuid.UUID]*domain.DeviceType,
) error {
	if device.Position == nil || device.RackID == nil {
		return nil
	}
	span := deviceType.UHeight
	if span < 1 {
		return nil
	}
	bottom := *device.Position
	top := bottom + span - 1
	if top > rack.UHeight {
		return fmt.Errorf("%w: units %d-%d exceed the %dU rack %s",
			ErrPlacement, bottom, top, rack.UHeight, rack.Name)
	}

	for _, other := range mounted {
		if other.ID == device.ID || other.RackID == nil ||
			*other.RackID != rack.ID || other.Position == nil {
			continue
		}
		otherSpan := 1
		otherFullDepth := false
		if dt, ok := types[other.DeviceTypeID]; ok {
			otherSpan = dt.UHeight
			otherFullDepth = dt.IsFullDepth
		}
		if otherSpan < 1 {
			continue
		}
		if other.Face != device.Face && !otherFullDepth && !deviceType.IsFullDepth {
			continue
		}
		otherTop := *other.Position + otherSpan - 1
		if bottom <= otherTop && *other.Position <= top {
			return fmt.Errorf("%w: units %d-%d collide with device %s at position %d",
				ErrPlacement, bottom, top, other.Name, *other.Position)
		}
	}
	return nil
}
