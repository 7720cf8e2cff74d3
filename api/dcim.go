package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/db"
	"github.com/sashashura/netbox/dcim"
	"github.com/sashashura/netbox/domain"
)

var (
	errNotConnected = errors.New("interface is not connected to a device")
	errPrimaryIP    = errors.New("invalid primary ip")
)

// --- sites ---

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SiteFilter{
		Region: q.Get("region"),
		Status: domain.SiteStatus(q.Get("status")),
		Tag:    q.Get("tag"),
		Query:  q.Get("q"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	sites, err := s.app.Repo.ListSites(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(sites), sites)
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	var site domain.Site
	if err := decodeJSON(r, &site); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	site.ID = id
	site.Created = now
	site.LastUpdated = now
	if err := site.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindSite, site.ID, domain.ActionCreate, nil, &site, func() error {
		return s.app.Repo.CreateSite(&site)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &site)
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	site, err := s.app.Repo.GetSite(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetSite(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindSite, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateSite(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetSite(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindSite, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteSite(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- racks ---

func (s *Server) listRacks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RackFilter{
		SiteID: queryUUID(r, "site_id"),
		Status: domain.RackStatus(q.Get("status")),
		Role:   q.Get("role"),
		Tag:    q.Get("tag"),
		Query:  q.Get("q"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	racks, err := s.app.Repo.ListRacks(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(racks), racks)
}

func (s *Server) createRack(w http.ResponseWriter, r *http.Request) {
	var rack domain.Rack
	if err := decodeJSON(r, &rack); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	rack.ID = id
	rack.Created = now
	rack.LastUpdated = now
	if rack.UHeight == 0 {
		rack.UHeight = 42
	}
	if rack.Width == 0 {
		rack.Width = 19
	}
	if err := rack.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindRack, rack.ID, domain.ActionCreate, nil, &rack, func() error {
		return s.app.Repo.CreateRack(&rack)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &rack)
}

func (s *Server) getRack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	rack, err := s.app.Repo.GetRack(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rack)
}

func (s *Server) updateRack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetRack(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindRack, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateRack(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteRack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetRack(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindRack, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteRack(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rackElevation renders the per-unit occupancy of a rack as JSON or SVG.
func (s *Server) rackElevation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	rack, err := s.app.Repo.GetRack(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	face := domain.DeviceFace(r.URL.Query().Get("face"))
	if face == "" {
		face = domain.FaceFront
	}

	devices, err := s.app.Repo.ListDevices(domain.DeviceFilter{RackID: id, Limit: domain.NoLimit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	types, err := s.deviceTypesFor(devices)
	if err != nil {
		s.writeError(w, err)
		return
	}
	reservations, err := s.app.Repo.ListRackReservations(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	elevation, err := dcim.Elevation(rack, devices, types, reservations, face)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}

	if r.URL.Query().Get("format") == "svg" {
		rendered, err := dcim.ElevationSVG(rack, elevation, dcim.DefaultSVGOptions)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		w.Write(rendered)
		return
	}
	writeList(w, len(elevation), elevation)
}

// --- rack reservations ---

func (s *Server) listRackReservations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	reservations, err := s.app.Repo.ListRackReservations(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(reservations), reservations)
}

func (s *Server) createRackReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	rack, err := s.app.Repo.GetRack(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var res domain.RackReservation
	if err := decodeJSON(r, &res); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	resID, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	res.ID = resID
	res.RackID = rack.ID
	res.CreatedBy = s.actor(r)
	res.Created = time.Now().UTC()
	if err := res.Validate(rack); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	existing, err := s.app.Repo.ListRackReservations(rack.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := res.Overlaps(existing); err != nil {
		writeErrorStatus(w, http.StatusConflict, err)
		return
	}
	if err := s.app.Repo.CreateRackReservation(&res); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &res)
}

func (s *Server) deleteRackReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Repo.DeleteRackReservation(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- device types ---

func (s *Server) listDeviceTypes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DeviceTypeFilter{
		Manufacturer: q.Get("manufacturer"),
		Query:        q.Get("q"),
		Limit:        queryInt(r, "limit"),
		Offset:       queryInt(r, "offset"),
	}
	types, err := s.app.Repo.ListDeviceTypes(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(types), types)
}

func (s *Server) createDeviceType(w http.ResponseWriter, r *http.Request) {
	var dt domain.DeviceType
	if err := decodeJSON(r, &dt); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	dt.ID = id
	dt.Created = now
	dt.LastUpdated = now
	if err := dt.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindDeviceType, dt.ID, domain.ActionCreate, nil, &dt, func() error {
		return s.app.Repo.CreateDeviceType(&dt)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &dt)
}

// importDeviceType accepts a YAML device type definition in the community
// library format.
func (s *Server) importDeviceType(w http.ResponseWriter, r *http.Request) {
	dt, err := s.app.Importer.ImportDeviceType(r.Body)
	if err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}

func (s *Server) getDeviceType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	dt, err := s.app.Repo.GetDeviceType(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (s *Server) updateDeviceType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetDeviceType(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindDeviceType, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateDeviceType(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteDeviceType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetDeviceType(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindDeviceType, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteDeviceType(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- devices ---

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DeviceFilter{
		SiteID:       queryUUID(r, "site_id"),
		RackID:       queryUUID(r, "rack_id"),
		DeviceTypeID: queryUUID(r, "device_type_id"),
		Role:         q.Get("role"),
		Status:       domain.DeviceStatus(q.Get("status")),
		Tag:          q.Get("tag"),
		Name:         q.Get("name"),
		Query:        q.Get("q"),
		Limit:        queryInt(r, "limit"),
		Offset:       queryInt(r, "offset"),
	}
	devices, err := s.app.Repo.ListDevices(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(devices), devices)
}

// deviceTypesFor resolves the device type of each device, deduplicated.
func (s *Server) deviceTypesFor(devices []*domain.Device) (map[uuid.UUID]*domain.DeviceType, error) {
	types := make(map[uuid.UUID]*domain.DeviceType, len(devices))
	for _, device := range devices {
		if _, ok := types[device.DeviceTypeID]; ok {
			continue
		}
		dt, err := s.app.Repo.GetDeviceType(device.DeviceTypeID)
		if err != nil {
			return nil, err
		}
		types[dt.ID] = dt
	}
	return types, nil
}

// checkPlacement verifies a positioned device against its rack: it must fit
// below the top and must not overlap devices already mounted there.
func (s *Server) checkPlacement(device *domain.Device) error {
	if device.RackID == nil || device.Position == nil {
		return nil
	}
	rack, err := s.app.Repo.GetRack(*device.RackID)
	if err != nil {
		return err
	}
	dt, err := s.app.Repo.GetDeviceType(device.DeviceTypeID)
	if err != nil {
		return err
	}
	mounted, err := s.app.Repo.ListDevices(domain.DeviceFilter{RackID: rack.ID, Limit: domain.NoLimit})
	if err != nil {
		return err
	}
	types, err := s.deviceTypesFor(mounted)
	if err != nil {
		return err
	}
	return dcim.CheckPlacement(device, dt, rack, mounted, types)
}

// checkPrimaryIPs verifies that each primary address exists, matches the
// slot's family, and is bound to one of the device's own interfaces.
func (s *Server) checkPrimaryIPs(device *domain.Device) error {
	for _, slot := range []struct {
		id     *uuid.UUID
		family int
	}{
		{device.PrimaryIP4ID, 4},
		{device.PrimaryIP6ID, 6},
	} {
		if slot.id == nil {
			continue
		}
		ip, err := s.app.Repo.GetIPAddress(*slot.id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("%w: address %s does not exist", errPrimaryIP, *slot.id)
			}
			return err
		}
		isV4 := ip.Address.Addr().Unmap().Is4()
		if (slot.family == 4) != isV4 {
			return fmt.Errorf("%w: the ipv%d slot cannot hold %s", errPrimaryIP, slot.family, ip.Address)
		}
		if ip.InterfaceID == nil {
			return fmt.Errorf("%w: %s is not assigned to an interface", errPrimaryIP, ip.Address)
		}
		iface, err := s.app.Repo.GetInterface(*ip.InterfaceID)
		if err != nil {
			return err
		}
		if iface.DeviceID != device.ID {
			return fmt.Errorf("%w: %s is assigned to another device", errPrimaryIP, ip.Address)
		}
	}
	return nil
}

// checkDevice runs the repository-backed device invariants that a bare
// Validate cannot: rack placement and primary address binding. It writes the
// error response itself and reports whether the device passed.
func (s *Server) checkDevice(w http.ResponseWriter, device *domain.Device) bool {
	if err := s.checkPlacement(device); err != nil {
		s.writeError(w, err)
		return false
	}
	if err := s.checkPrimaryIPs(device); err != nil {
		if errors.Is(err, errPrimaryIP) {
			writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		} else {
			s.writeError(w, err)
		}
		return false
	}
	return true
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var device domain.Device
	if err := decodeJSON(r, &device); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	device.ID = id
	device.Created = now
	device.LastUpdated = now
	if err := device.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if !s.checkDevice(w, &device) {
		return
	}
	err = s.commit(r, domain.KindDevice, device.ID, domain.ActionCreate, nil, &device, func() error {
		return s.app.Repo.CreateDevice(&device)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &device)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	device, err := s.app.Repo.GetDevice(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetDevice(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if !s.checkDevice(w, &updated) {
		return
	}
	err = s.commit(r, domain.KindDevice, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateDevice(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetDevice(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindDevice, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteDevice(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- interfaces ---

func (s *Server) listInterfaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.InterfaceFilter{
		DeviceID: queryUUID(r, "device_id"),
		Kind:     domain.InterfaceKind(q.Get("kind")),
		Name:     q.Get("name"),
		Query:    q.Get("q"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	}
	ifaces, err := s.app.Repo.ListInterfaces(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(ifaces), ifaces)
}

func (s *Server) createInterface(w http.ResponseWriter, r *http.Request) {
	var iface domain.Interface
	if err := decodeJSON(r, &iface); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	iface.ID = id
	if err := iface.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindInterface, iface.ID, domain.ActionCreate, nil, &iface, func() error {
		return s.app.Repo.CreateInterface(&iface)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &iface)
}

func (s *Server) getInterface(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	iface, err := s.app.Repo.GetInterface(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, iface)
}

func (s *Server) updateInterface(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetInterface(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindInterface, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateInterface(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteInterface(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetInterface(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindInterface, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteInterface(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadTopology fetches every interface and cable, the working set for path
// traces. Paging is disabled so the walk sees the whole plant.
func (s *Server) loadTopology() (map[uuid.UUID]*domain.Interface, []*domain.Cable, error) {
	ifaces, err := s.app.Repo.ListInterfaces(domain.InterfaceFilter{Limit: domain.NoLimit})
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*domain.Interface, len(ifaces))
	for _, iface := range ifaces {
		byID[iface.ID] = iface
	}
	cables, err := s.app.Repo.ListCables(domain.CableFilter{Limit: domain.NoLimit})
	if err != nil {
		return nil, nil, err
	}
	return byID, cables, nil
}

// traceInterface walks the cable path from an interface, hopping through
// patch panel pass-through ports.
func (s *Server) traceInterface(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	start, err := s.app.Repo.GetInterface(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	interfaces, cables, err := s.loadTopology()
	if err != nil {
		s.writeError(w, err)
		return
	}
	path, err := dcim.Trace(start, interfaces, cables)
	if err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeList(w, len(path), path)
}

// respondConnectedDevice walks the cable path from the peer interface and
// responds with the device on the far end. An unconnected interface or a
// path that dead-ends inside a patch panel yields 404.
func (s *Server) respondConnectedDevice(w http.ResponseWriter, start *domain.Interface) {
	interfaces, cables, err := s.loadTopology()
	if err != nil {
		s.writeError(w, err)
		return
	}
	far, err := dcim.ConnectedDevice(start, interfaces, cables)
	if err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	if far == nil {
		writeErrorStatus(w, http.StatusNotFound, errNotConnected)
		return
	}
	device, err := s.app.Repo.GetDevice(far.DeviceID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device":    device,
		"interface": far,
	})
}

// connectedDevice resolves the device on the far end of an interface's cable
// path.
func (s *Server) connectedDevice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	start, err := s.app.Repo.GetInterface(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondConnectedDevice(w, start)
}

// connectedDeviceByName resolves an LLDP neighbor known only by name: the
// peer device and interface names identify the near side of the cable, and
// the response is whatever sits on its far side.
func (s *Server) connectedDeviceByName(w http.ResponseWriter, r *http.Request) {
	peerDevice := r.URL.Query().Get("peer_device")
	peerInterface := r.URL.Query().Get("peer_interface")
	if peerDevice == "" || peerInterface == "" {
		writeErrorStatus(w, http.StatusBadRequest,
			errors.New("peer_device and peer_interface are required"))
		return
	}
	devices, err := s.app.Repo.ListDevices(domain.DeviceFilter{Name: peerDevice, Limit: domain.NoLimit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(devices) == 0 {
		writeErrorStatus(w, http.StatusNotFound, fmt.Errorf("device %q not found", peerDevice))
		return
	}
	ifaces, err := s.app.Repo.ListInterfaces(domain.InterfaceFilter{
		DeviceID: devices[0].ID,
		Name:     peerInterface,
		Limit:    domain.NoLimit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(ifaces) == 0 {
		writeErrorStatus(w, http.StatusNotFound,
			fmt.Errorf("interface %q not found on device %q", peerInterface, peerDevice))
		return
	}
	s.respondConnectedDevice(w, ifaces[0])
}

// --- cables ---

func (s *Server) listCables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CableFilter{
		InterfaceID: queryUUID(r, "interface_id"),
		DeviceID:    queryUUID(r, "device_id"),
		Status:      domain.CableStatus(q.Get("status")),
		Type:        domain.CableType(q.Get("type")),
		Tag:         q.Get("tag"),
		Limit:       queryInt(r, "limit"),
		Offset:      queryInt(r, "offset"),
	}
	cables, err := s.app.Repo.ListCables(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(cables), cables)
}

func (s *Server) createCable(w http.ResponseWriter, r *http.Request) {
	var cable domain.Cable
	if err := decodeJSON(r, &cable); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	cable.ID = id
	cable.Created = now
	cable.LastUpdated = now
	if err := cable.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindCable, cable.ID, domain.ActionCreate, nil, &cable, func() error {
		return s.app.Repo.CreateCable(&cable)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &cable)
}

func (s *Server) getCable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	cable, err := s.app.Repo.GetCable(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cable)
}

func (s *Server) updateCable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetCable(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	updated := *existing
	if err := decodeJSON(r, &updated); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	updated.ID = existing.ID
	updated.Created = existing.Created
	updated.LastUpdated = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindCable, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateCable(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteCable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetCable(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindCable, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteCable(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
