package dcim

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

func TestCheckPlacement(t *testing.T) {
	t.Run("should reject a device that sticks out past the rack top", func(t *testing.T) {
		rack := testRack(10)
		dt := deviceType(4, false)
		device := rackedDevice(rack, "big-01", 9, domain.FaceFront, dt)

		err := CheckPlacement(device, dt, rack, nil, nil)
		if !errors.Is(err, ErrPlacement) {
			t.Fatalf("\nwanted:\nErrPlacement\ngot:\n%v", err)
		}
	})

	t.Run("should reject an overlap with a mounted device on the same face", func(t *testing.T) {
		rack := testRack(10)
		dt := deviceType(4, false)
		mounted := rackedDevice(rack, "srv-01", 3, domain.FaceFront, dt)
		incoming := rackedDevice(rack, "srv-02", 5, domain.FaceFront, dt)

		err := CheckPlacement(incoming, dt, rack,
			[]*domain.Device{mounted},
			map[uuid.UUID]*domain.DeviceType{dt.ID: dt})
		if !errors.Is(err, ErrPlacement) {
			t.Fatalf("\nwanted:\nErrPlacement\ngot:\n%v", err)
		}
	})

	t.Run("should allow opposite faces when neither device is full depth", func(t *testing.T) {
		rack := testRack(10)
		dt := deviceType(2, false)
		mounted := rackedDevice(rack, "patch-01", 3, domain.FaceFront, dt)
		incoming := rackedDevice(rack, "patch-02", 3, domain.FaceRear, dt)

		err := CheckPlacement(incoming, dt, rack,
			[]*domain.Device{mounted},
			map[uuid.UUID]*domain.DeviceType{dt.ID: dt})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should block the opposite face for a full-depth device", func(t *testing.T) {
		rack := testRack(10)
		fullDT := deviceType(2, true)
		halfDT := deviceType(2, false)
		mounted := rackedDevice(rack, "srv-01", 3, domain.FaceFront, fullDT)
		incoming := rackedDevice(rack, "patch-01", 4, domain.FaceRear, halfDT)

		err := CheckPlacement(incoming, halfDT, rack,
			[]*domain.Device{mounted},
			map[uuid.UUID]*domain.DeviceType{fullDT.ID: fullDT, halfDT.ID: halfDT})
		if !errors.Is(err, ErrPlacement) {
			t.Fatalf("\nwanted:\nErrPlacement\ngot:\n%v", err)
		}
	})

	t.Run("should ignore the device itself when revalidating an update", func(t *testing.T) {
		rack := testRack(10)
		dt := deviceType(2, false)
		device := rackedDevice(rack, "srv-01", 3, domain.FaceFront, dt)

		err := CheckPlacement(device, dt, rack,
			[]*domain.Device{device},
			map[uuid.UUID]*domain.DeviceType{dt.ID: dt})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should ignore devices mounted in other racks", func(t *testing.T) {
		rack := testRack(10)
		otherRack := testRack(10)
		dt := deviceType(2, false)
		elsewhere := rackedDevice(otherRack, "srv-01", 3, domain.FaceFront, dt)
		incoming := rackedDevice(rack, "srv-02", 3, domain.FaceFront, dt)

		err := CheckPlacement(incoming, dt, rack,
			[]*domain.Device{elsewhere},
			map[uuid.UUID]*domain.DeviceType{dt.ID: dt})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should pass unpositioned and zero-U devices", func(t *testing.T) {
		rack := testRack(10)
		dt := deviceType(2, false)
		unpositioned := rackedDevice(rack, "srv-01", 1, domain.FaceFront, dt)
		unpositioned.Position = nil

		if err := CheckPlacement(unpositioned, dt, rack, nil, nil); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		zeroU := deviceType(0, false)
		device := rackedDevice(rack, "pdu-01", 1, domain.FaceFront, zeroU)
		if err := CheckPlacement(device, zeroU, rack, nil, nil); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})
}
