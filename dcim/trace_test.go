package dcim

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

func iface(deviceID uuid.UUID, name string, kind domain.InterfaceKind) *domain.Interface {
	return &domain.Interface{
		ID:       uuid.New(),
		DeviceID: deviceID,
		Name:     name,
		Kind:     kind,
		Enabled:  true,
	}
}

func cable(a, b *domain.Interface) *domain.Cable {
	return &domain.Cable{
		ID:           uuid.New(),
		AInterfaceID: a.ID,
		BInterfaceID: b.ID,
		Status:       domain.CableStatusConnected,
	}
}

func ifaceMap(ifaces ...*domain.Interface) map[uuid.UUID]*domain.Interface {
	m := make(map[uuid.UUID]*domain.Interface, len(ifaces))
	for _, i := range ifaces {
		m[i.ID] = i
	}
	return m
}

func TestTrace(t *testing.T) {
	t.Run("should return an empty path for an un-cabled interface", func(t *testing.T) {
		start := iface(uuid.New(), "eth0", domain.InterfacePhysical)

		path, err := Trace(start, ifaceMap(start), nil)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(path) != 0 {
			t.Fatalf("\nwanted:\n0 segments\ngot:\n%d", len(path))
		}
	})

	t.Run("should trace a direct cable in one segment", func(t *testing.T) {
		a := iface(uuid.New(), "eth0", domain.InterfacePhysical)
		b := iface(uuid.New(), "ge-0/0/1", domain.InterfacePhysical)
		c := cable(a, b)

		path, err := Trace(a, ifaceMap(a, b), []*domain.Cable{c})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(path) != 1 {
			t.Fatalf("\nwanted:\n1 segment\ngot:\n%d", len(path))
		}
		if path[0].Near.ID != a.ID || path[0].Far.ID != b.ID || path[0].Cable.ID != c.ID {
			t.Fatalf("\nwanted:\n%s -> %s\ngot:\n%s -> %s", a.Name, b.Name, path[0].Near.Name, path[0].Far.Name)
		}
	})

	t.Run("should hop through a patch panel", func(t *testing.T) {
		panelID := uuid.New()
		server := iface(uuid.New(), "eth0", domain.InterfacePhysical)
		front := iface(panelID, "front1", domain.InterfaceFront)
		rear := iface(panelID, "rear1", domain.InterfaceRear)
		front.PairedPortID = &rear.ID
		rear.PairedPortID = &front.ID
		swPort := iface(uuid.New(), "ge-0/0/1", domain.InterfacePhysical)

		cables := []*domain.Cable{cable(server, front), cable(rear, swPort)}

		path, err := Trace(server, ifaceMap(server, front, rear, swPort), cables)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(path) != 2 {
			t.Fatalf("\nwanted:\n2 segments\ngot:\n%d", len(path))
		}
		if path[0].Far.ID != front.ID {
			t.Fatalf("\nwanted:\nfront port first\ngot:\n%s", path[0].Far.Name)
		}
		if path[1].Near.ID != rear.ID || path[1].Far.ID != swPort.ID {
			t.Fatalf("\nwanted:\nrear -> switch\ngot:\n%s -> %s", path[1].Near.Name, path[1].Far.Name)
		}
		if Endpoint(server, path).ID != swPort.ID {
			t.Fatalf("\nwanted:\nswitch endpoint\ngot:\n%s", Endpoint(server, path).Name)
		}
	})

	t.Run("should stop at a pass-through port with no pair", func(t *testing.T) {
		server := iface(uuid.New(), "eth0", domain.InterfacePhysical)
		front := iface(uuid.New(), "front1", domain.InterfaceFront)

		path, err := Trace(server, ifaceMap(server, front), []*domain.Cable{cable(server, front)})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(path) != 1 {
			t.Fatalf("\nwanted:\n1 segment\ngot:\n%d", len(path))
		}
	})

	t.Run("should detect a cabling loop", func(t *testing.T) {
		panelID := uuid.New()
		front := iface(panelID, "front1", domain.InterfaceFront)
		rear := iface(panelID, "rear1", domain.InterfaceRear)
		front.PairedPortID = &rear.ID
		rear.PairedPortID = &front.ID

		// a patch cable plugged into both sides of the same pass-through pair
		loop := []*domain.Cable{cable(front, rear)}

		_, err := Trace(front, ifaceMap(front, rear), loop)
		if !errors.Is(err, ErrTraceLoop) {
			t.Fatalf("\nwanted:\nErrTraceLoop\ngot:\n%v", err)
		}
	})
}

func TestConnectedDevice(t *testing.T) {
	t.Run("should resolve the device behind a patch panel", func(t *testing.T) {
		panelID := uuid.New()
		peerPort := iface(uuid.New(), "ge-0/0/1", domain.InterfacePhysical)
		front := iface(panelID, "front1", domain.InterfaceFront)
		rear := iface(panelID, "rear1", domain.InterfaceRear)
		front.PairedPortID = &rear.ID
		rear.PairedPortID = &front.ID
		serverPort := iface(uuid.New(), "eth0", domain.InterfacePhysical)

		cables := []*domain.Cable{cable(peerPort, front), cable(rear, serverPort)}

		got, err := ConnectedDevice(peerPort, ifaceMap(peerPort, front, rear, serverPort), cables)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got == nil || got.ID != serverPort.ID {
			t.Fatalf("\nwanted:\n%s\ngot:\n%v", serverPort.Name, got)
		}
	})

	t.Run("should return nil when the peer is not connected", func(t *testing.T) {
		peerPort := iface(uuid.New(), "ge-0/0/1", domain.InterfacePhysical)

		got, err := ConnectedDevice(peerPort, ifaceMap(peerPort), nil)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%s", got.Name)
		}
	})

	t.Run("should return nil when the path dead-ends in a panel", func(t *testing.T) {
		peerPort := iface(uuid.New(), "ge-0/0/1", domain.InterfacePhysical)
		front := iface(uuid.New(), "front1", domain.InterfaceFront)

		got, err := ConnectedDevice(peerPort, ifaceMap(peerPort, front), []*domain.Cable{cable(peerPort, front)})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%s", got.Name)
		}
	})
}
