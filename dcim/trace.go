package dcim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

// TraceSegment is one hop of a cable trace: the near termination, the cable,
// and the far termination.
type TraceSegment struct {
	Near  *domain.Interface `json:"near"`
	Cable *domain.Cable     `json:"cable"`
	Far   *domain.Interface `json:"far"`
}

// ErrTraceLoop is returned when a trace revisits a cable, which means the
// cabling data contains a cycle.
var ErrTraceLoop = fmt.Errorf("cable path loops back on itself")

// Trace walks the cable path starting from a termination. Each segment goes
// near end, cable, far end; when the far end is a pass-through port the walk
// hops to its paired port and continues over that port's cable. The walk ends
// at an un-cabled termination or a pass-through port with no paired port.
func Trace(
	start *domain.Interface,
	interfaces map[uuid.UUID]*domain.Interface,
	cables []*domain.Cable,
) ([]*TraceSegment, error) {
	cableFor := make(map[uuid.UUID]*domain.Cable, 2*len(cables))
	for _, cable := range cables {
		cableFor[cable.AInterfaceID] = cable
		cableFor[cable.BInterfaceID] = cable
	}

	var path []*TraceSegment
	seen := make(map[uuid.UUID]bool)

	current := start
	for current != nil {
		cable, ok := cableFor[current.ID]
		if !ok {
			break
		}
		if seen[cable.ID] {
			return nil, fmt.Errorf("tracing from %s: %w", start.Name, ErrTraceLoop)
		}
		seen[cable.ID] = true

		farID := cable.AInterfaceID
		if farID == current.ID {
			farID = cable.BInterfaceID
		}
		far, ok := interfaces[farID]
		if !ok {
			return nil, fmt.Errorf("tracing from %s: far termination %s not loaded", start.Name, farID)
		}

		path = append(path, &TraceSegment{Near: current, Cable: cable, Far: far})

		if !far.PassThrough() {
			break
		}
		paired, ok := interfaces[*far.PairedPortID]
		if !ok {
			return nil, fmt.Errorf("tracing from %s: paired port %s not loaded", start.Name, *far.PairedPortID)
		}
		current = paired
	}
	return path, nil
}

// Endpoint returns the final termination of a trace, or the start itself for
// an empty trace.
func Endpoint(start *domain.Interface, path []*TraceSegment) *domain.Interface {
	if len(path) == 0 {
		return start
	}
	return path[len(path)-1].Far
}

// ConnectedDevice resolves the device cabled to the far side of a peer's
// interface, following pass-through ports. It returns the far termination,
// from which the caller resolves the device. A nil return means the peer
// interface is not connected to anything.
func ConnectedDevice(
	peerIface *domain.Interface,
	interfaces map[uuid.UUID]*domain.Interface,
	cables []*domain.Cable,
) (*domain.Interface, error) {
	path, err := Trace(peerIface, interfaces, cables)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, nil
	}
	end := Endpoint(peerIface, path)
	if end.PassThrough() || end.Kind == domain.InterfaceFront || end.Kind == domain.InterfaceRear {
		// The path dead-ends inside a patch panel.
		return nil, nil
	}
	return end, nil
}
