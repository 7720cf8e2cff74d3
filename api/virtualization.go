package api

import (
	"net/http"
	"time"

	"github.com/sashashura/netbox/domain"
)

// --- clusters ---

func (s *Server) listClusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ClusterFilter{
		Type:   q.Get("type"),
		Group:  q.Get("group"),
		SiteID: queryUUID(r, "site_id"),
		Query:  q.Get("q"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	clusters, err := s.app.Repo.ListClusters(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(clusters), clusters)
}

func (s *Server) createCluster(w http.ResponseWriter, r *http.Request) {
	var cluster domain.Cluster
	if err := decodeJSON(r, &cluster); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	cluster.ID = id
	cluster.Created = now
	cluster.LastUpdated = now
	if err := cluster.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindCluster, cluster.ID, domain.ActionCreate, nil, &cluster, func() error {
		return s.app.Repo.CreateCluster(&cluster)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &cluster)
}

func (s *Server) getCluster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	cluster, err := s.app.Repo.GetCluster(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cluster)
}

func (s *Server) updateCluster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetCluster(id)
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
	err = s.commit(r, domain.KindCluster, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateCluster(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteCluster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetCluster(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindCluster, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteCluster(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- virtual machines ---

func (s *Server) listVirtualMachines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.VirtualMachineFilter{
		ClusterID: queryUUID(r, "cluster_id"),
		Status:    domain.DeviceStatus(q.Get("status")),
		Role:      q.Get("role"),
		Tag:       q.Get("tag"),
		Query:     q.Get("q"),
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	}
	vms, err := s.app.Repo.ListVirtualMachines(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeList(w, len(vms), vms)
}

func (s *Server) createVirtualMachine(w http.ResponseWriter, r *http.Request) {
	var vm domain.VirtualMachine
	if err := decodeJSON(r, &vm); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id, err := newID()
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := time.Now().UTC()
	vm.ID = id
	vm.Created = now
	vm.LastUpdated = now
	if vm.Status == "" {
		vm.Status = domain.DeviceStatusActive
	}
	if err := vm.Validate(); err != nil {
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
		return
	}
	err = s.commit(r, domain.KindVirtualMachine, vm.ID, domain.ActionCreate, nil, &vm, func() error {
		return s.app.Repo.CreateVirtualMachine(&vm)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &vm)
}

func (s *Server) getVirtualMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	vm, err := s.app.Repo.GetVirtualMachine(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

func (s *Server) updateVirtualMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetVirtualMachine(id)
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
	err = s.commit(r, domain.KindVirtualMachine, updated.ID, domain.ActionUpdate, existing, &updated, func() error {
		return s.app.Repo.UpdateVirtualMachine(&updated)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &updated)
}

func (s *Server) deleteVirtualMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	existing, err := s.app.Repo.GetVirtualMachine(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	err = s.commit(r, domain.KindVirtualMachine, id, domain.ActionDelete, existing, nil, func() error {
		return s.app.Repo.DeleteVirtualMachine(id)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
