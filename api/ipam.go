package api

import (
	"errors"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
	"github.com/sashashura/netbox/ipam"
)

// --- prefixes ---

func (s *Server) listPrefixes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.PrefixFilter{
		VRF:      q.Get("vrf"),
		VRFSet:   q.Has("vrf"),
		SiteID:   queryUUID(r, "site_id"),
		VLANID:   queryUUID(r, "vlan_id"),
		Status:   domain.PrefixStatus(q.Get("status")),
		Role:     q.Get("role"),
		Family:   queryInt(r, "family"),
		Contains: q.Get("contains"),
		Tag:      q.Get("tag"),
		Query:    q.Get("q"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	}
	prefixes, err := s.app.Repo.ListPrefixes(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(prefixes), prefixes)
}

func (s *Server) createPrefix(w http.ResponseWriter, r *http.Request) {
	var prefix domain.Prefix
	if err := decodeJSON(r, &prefix); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	prefix.ID = id
	prefix.Created = now
	prefix.LastUpdated = now
	if err := prefix.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindPrefix, prefix.ID, domain.ActionCreate, nil, &prefix, func() error {
		return s.app.Repo.CreatePrefix(&prefix)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &prefix)
}

func (s *Server) getPrefix(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	prefix, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefix)
}

func (s *Server) updatePrefix(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetPrefix(id)
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
	err = s.commit(r, domain.KindPrefix, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdatePrefix(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deletePrefix(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindPrefix, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeletePrefix(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// childNetworks extracts the bare networks of a prefix's children.
func (s *Server) childNetworks(prefix *domain.Prefix) ([]netip.Prefix, error) {
	children, err := s.app.Repo.ListChildPrefixes(prefix)
	if err != nil {
		return nil, err
	}
	networks := make([]netip.Prefix, 0, len(children))
	for _, child := range children {
		networks = append(networks, child.Prefix)
	}
	return networks, nil
}

// availablePrefixes lists the unallocated space inside a prefix as a set of
// maximal free blocks.
func (s *Server) availablePrefixes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	parent, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	children, err := s.childNetworks(parent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	free := ipam.AvailablePrefixes(parent.Prefix, children)
	results := make([]string, 0, len(free))
	for _, p := range free {
		results = append(results, p.String())
	}
	writeList(w, len(results), results)
}

// allocatePrefix carves the first free child prefix of the requested length
// out of a parent and stores it.
func (s *Server) allocatePrefix(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	parent, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		PrefixLength int                 `json:"prefix_length"`
		Status       domain.PrefixStatus `json:"status"`
		Role         string              `json:"role"`
		IsPool       bool                `json:"is_pool"`
		Description  string              `json:"description"`
	}
	// An empty body asks for the defaults.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if req.Status == "" {
		req.Status = domain.PrefixStatusActive
	}

	children, err := s.childNetworks(parent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	network, err := ipam.FirstAvailablePrefix(parent.Prefix, children, req.PrefixLength)
	if err != nil {
		if errors.Is(err, ipam.ErrNoSpace) {
			writeErrorStatus(w, http.StatusConflict, err)
			return
		}
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}

	childID, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	child := domain.Prefix{
		ID:          childID,
		Prefix:      network,
		VRF:         parent.VRF,
		SiteID:      parent.SiteID,
		Status:      req.Status,
		Role:        req.Role,
		IsPool:      req.IsPool,
		Description: req.Description,
		Created:     now,
		LastUpdated: now,
	}
	if err := child.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindPrefix, child.ID, domain.ActionCreate, nil, &child, func() error {
		return s.app.Repo.CreatePrefix(&child)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &child)
}

// availableIPs lists free host addresses inside a prefix, lowest first.
func (s *Server) availableIPs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	prefix, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	used, err := s.app.Repo.ListIPsInPrefix(prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	free := ipam.AvailableIPs(prefix, used, queryInt(r, "limit"))
	results := make([]string, 0, len(free))
	for _, addr := range free {
		results = append(results, addr.String())
	}
	writeList(w, len(results), results)
}

// allocateIP assigns the lowest free address of a prefix and stores it.
func (s *Server) allocateIP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	prefix, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		Status      domain.IPStatus `json:"status"`
		Role        domain.IPRole   `json:"role"`
		InterfaceID *uuid.UUID      `json:"interface_id"`
		DNSName     string          `json:"dns_name"`
		Description string          `json:"description"`
	}
	// An empty body asks for the defaults.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	if req.Status == "" {
		req.Status = domain.IPStatusActive
	}

	used, err := s.app.Repo.ListIPsInPrefix(prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	free := ipam.AvailableIPs(prefix, used, 1)
	if len(free) == 0 {
		writeErrorStatus(w, http.StatusConflict, ipam.ErrNoSpace)
		return
	}

	ipID, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	ip := domain.IPAddress{
		ID:          ipID,
		Address:     netip.PrefixFrom(free[0], prefix.Prefix.Bits()),
		VRF:         prefix.VRF,
		Status:      req.Status,
		Role:        req.Role,
		InterfaceID: req.InterfaceID,
		DNSName:     req.DNSName,
		Description: req.Description,
		Created:     now,
		LastUpdated: now,
	}
	if err := ip.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindIPAddress, ip.ID, domain.ActionCreate, nil, &ip, func() error {
		return s.app.Repo.CreateIPAddress(&ip)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &ip)
}

// prefixUtilization reports how much of a prefix is consumed: child coverage
// for containers, assigned addresses for everything else.
func (s *Server) prefixUtilization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	prefix, err := s.app.Repo.GetPrefix(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	children, err := s.app.Repo.ListChildPrefixes(prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ips, err := s.app.Repo.ListIPsInPrefix(prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      prefix.Prefix.String(),
		"utilization": ipam.Utilization(prefix, children, ips),
	})
}

// --- ip addresses ---

func (s *Server) listIPAddresses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.IPAddressFilter{
		VRF:         q.Get("vrf"),
		VRFSet:      q.Has("vrf"),
		Status:      domain.IPStatus(q.Get("status")),
		Role:        domain.IPRole(q.Get("role")),
		InterfaceID: queryUUID(r, "interface_id"),
		DeviceID:    queryUUID(r, "device_id"),
		Parent:      q.Get("parent"),
		Family:      queryInt(r, "family"),
		Tag:         q.Get("tag"),
		Query:       q.Get("q"),
		Limit:       queryInt(r, "limit"),
		Offset:      queryInt(r, "offset"),
	}
	ips, err := s.app.Repo.ListIPAddresses(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(ips), ips)
}

func (s *Server) createIPAddress(w http.ResponseWriter, r *http.Request) {
	var ip domain.IPAddress
	if err := decodeJSON(r, &ip); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	ip.ID = id
	ip.Created = now
	ip.LastUpdated = now
	if ip.Status == "" {
		ip.Status = domain.IPStatusActive
	}
	if err := ip.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindIPAddress, ip.ID, domain.ActionCreate, nil, &ip, func() error {
		return s.app.Repo.CreateIPAddress(&ip)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &ip)
}

func (s *Server) getIPAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	ip, err := s.app.Repo.GetIPAddress(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ip)
}

func (s *Server) updateIPAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetIPAddress(id)
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
	err = s.commit(r, domain.KindIPAddress, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateIPAddress(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteIPAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetIPAddress(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindIPAddress, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteIPAddress(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- vlans ---

func (s *Server) listVLANs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.VLANFilter{
		Group:  q.Get("group"),
		SiteID: queryUUID(r, "site_id"),
		Status: domain.VLANStatus(q.Get("status")),
		Role:   q.Get("role"),
		VID:    queryInt(r, "vid"),
		Tag:    q.Get("tag"),
		Query:  q.Get("q"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	vlans, err := s.app.Repo.ListVLANs(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(vlans), vlans)
}

func (s *Server) createVLAN(w http.ResponseWriter, r *http.Request) {
	var vlan domain.VLAN
	if err := decodeJSON(r, &vlan); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	vlan.ID = id
	vlan.Created = now
	vlan.LastUpdated = now
	if vlan.Status == "" {
		vlan.Status = domain.VLANStatusActive
	}
	if err := vlan.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindVLAN, vlan.ID, domain.ActionCreate, nil, &vlan, func() error {
		return s.app.Repo.CreateVLAN(&vlan)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &vlan)
}

func (s *Server) getVLAN(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	vlan, err := s.app.Repo.GetVLAN(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vlan)
}

func (s *Server) updateVLAN(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetVLAN(id)
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
	err = s.commit(r, domain.KindVLAN, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateVLAN(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteVLAN(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetVLAN(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindVLAN, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteVLAN(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
