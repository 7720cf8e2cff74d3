package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cluster represents a group of physical resources on which virtual machines
// run, such as a hypervisor cluster. A cluster may be tied to a site.
type Cluster struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`  // Unique.
	Type        string     `json:"type"`  // Technology, e.g. "proxmox", "vmware".
	Group       string     `json:"group"` // Organizational grouping.
	SiteID      *uuid.UUID `json:"site_id"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Created     time.Time  `json:"created"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Validate checks cluster fields that do not require repository access.
func (c *Cluster) Validate() error {
	if c.Name == "" {
		return errors.New("cluster name is required")
	}
	if c.Type == "" {
		return errors.New("cluster type is required")
	}
	return nil
}

// VirtualMachine represents a VM hosted on a cluster. VMs reuse the device
// status vocabulary.
type VirtualMachine struct {
	ID           uuid.UUID      `json:"id"`
	ClusterID    uuid.UUID      `json:"cluster_id"`
	Name         string         `json:"name"` // Unique within the cluster.
	Status       DeviceStatus   `json:"status"`
	Role         string         `json:"role"`
	VCPUs        *int           `json:"vcpus"`
	MemoryMB     *int           `json:"memory_mb"`
	DiskGB       *int           `json:"disk_gb"`
	PrimaryIP4ID *uuid.UUID     `json:"primary_ip4_id"`
	Comments     string         `json:"comments"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	Created      time.Time      `json:"created"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Validate checks VM fields that do not require repository access.
func (vm *VirtualMachine) Validate() error {
	if vm.Name == "" {
		return errors.New("virtual machine name is required")
	}
	if vm.ClusterID == uuid.Nil {
		return errors.New("virtual machine must belong to a cluster")
	}
	switch vm.Status {
	case DeviceStatusActive, DeviceStatusPlanned, DeviceStatusStaged,
		DeviceStatusFailed, DeviceStatusOffline, DeviceStatusDecommissioning:
	default:
		return fmt.Errorf("invalid virtual machine status %q", vm.Status)
	}
	if vm.VCPUs != nil && *vm.VCPUs < 1 {
		return fmt.Errorf("vcpus must be at least 1, got %d", *vm.VCPUs)
	}
	return nil
}

// ClusterFilter narrows ListClusters results. Zero values are ignored.
type ClusterFilter struct {
	Type   string
	Group  string
	SiteID uuid.UUID
	Query  string
	Limit  int
	Offset int
}

// VirtualMachineFilter narrows ListVirtualMachines results.
type VirtualMachineFilter struct {
	ClusterID uuid.UUID
	Status    DeviceStatus
	Role      string
	Tag       string
	Query     string
	Limit     int
	Offset    int
}

// VirtualizationRepository defines the interface for managing clusters and
// virtual machines.
type VirtualizationRepository interface {
	CreateCluster(cluster *Cluster) error
	GetCluster(id uuid.UUID) (*Cluster, error)
	ListClusters(filter ClusterFilter) ([]*Cluster, error)
	UpdateCluster(cluster *Cluster) error
	DeleteCluster(id uuid.UUID) error

	CreateVirtualMachine(vm *VirtualMachine) error
	GetVirtualMachine(id uuid.UUID) (*VirtualMachine, error)
	ListVirtualMachines(filter VirtualMachineFilter) ([]*VirtualMachine, error)
	UpdateVirtualMachine(vm *VirtualMachine) error
	DeleteVirtualMachine(id uuid.UUID) error
}
