package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.VirtualizationRepository = (*Repository)(nil)

// dbCluster represents a cluster as stored in the database.
type dbCluster struct {
	ID          uuid.UUID  `db:"id"`
	Name        string     `db:"name"`
	Type        string     `db:"type"`
	Group       string     `db:"cluster_group"`
	SiteID      *uuid.UUID `db:"site_id"`
	Description string     `db:"description"`
	Tags        StringList `db:"tags"`
	Created     time.Time  `db:"created"`
	LastUpdated time.Time  `db:"last_updated"`
}

func toDomainCluster(row *dbCluster) *domain.Cluster {
	return &domain.Cluster{
		ID:          row.ID,
		Name:        row.Name,
		Type:        row.Type,
		Group:       row.Group,
		SiteID:      row.SiteID,
		Description: row.Description,
		Tags:        []string(row.Tags),
		Created:     row.Created,
		LastUpdated: row.LastUpdated,
	}
}

// dbVirtualMachine represents a VM as stored in the database.
type dbVirtualMachine struct {
	ID           uuid.UUID     `db:"id"`
	ClusterID    uuid.UUID     `db:"cluster_id"`
	Name         string        `db:"name"`
	Status       string        `db:"status"`
	Role         string        `db:"role"`
	VCPUs        sql.NullInt64 `db:"vcpus"`
	MemoryMB     sql.NullInt64 `db:"memory_mb"`
	DiskGB       sql.NullInt64 `db:"disk_gb"`
	PrimaryIP4ID *uuid.UUID    `db:"primary_ip4_id"`
	Comments     string        `db:"comments"`
	Tags         StringList    `db:"tags"`
	CustomFields Fields        `db:"custom_fields"`
	Created      time.Time     `db:"created"`
	LastUpdated  time.Time     `db:"last_updated"`
}

func fromDomainVirtualMachine(vm *domain.VirtualMachine) *dbVirtualMachine {
	row := &dbVirtualMachine{
		ID:           vm.ID,
		ClusterID:    vm.ClusterID,
		Name:         vm.Name,
		Status:       string(vm.Status),
		Role:         vm.Role,
		PrimaryIP4ID: vm.PrimaryIP4ID,
		Comments:     vm.Comments,
		Tags:         StringList(vm.Tags),
		CustomFields: Fields(vm.CustomFields),
		Created:      vm.Created,
		LastUpdated:  vm.LastUpdated,
	}
	if vm.VCPUs != nil {
		row.VCPUs = sql.NullInt64{Int64: int64(*vm.VCPUs), Valid: true}
	}
	if vm.MemoryMB != nil {
		row.MemoryMB = sql.NullInt64{Int64: int64(*vm.MemoryMB), Valid: true}
	}
	if vm.DiskGB != nil {
		row.DiskGB = sql.NullInt64{Int64: int64(*vm.DiskGB), Valid: true}
	}
	return row
}

func toDomainVirtualMachine(row *dbVirtualMachine) *domain.VirtualMachine {
	vm := &domain.VirtualMachine{
		ID:           row.ID,
		ClusterID:    row.ClusterID,
		Name:         row.Name,
		Status:       domain.DeviceStatus(row.Status),
		Role:         row.Role,
		PrimaryIP4ID: row.PrimaryIP4ID,
		Comments:     row.Comments,
		Tags:         []string(row.Tags),
		CustomFields: map[string]any(row.CustomFields),
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}
	if row.VCPUs.Valid {
		v := int(row.VCPUs.Int64)
		vm.VCPUs = &v
	}
	if row.MemoryMB.Valid {
		v := int(row.MemoryMB.Int64)
		vm.MemoryMB = &v
	}
	if row.DiskGB.Valid {
		v := int(row.DiskGB.Int64)
		vm.DiskGB = &v
	}
	return vm
}

// CreateCluster inserts a new cluster.
func (repo *Repository) CreateCluster(cluster *domain.Cluster) error {
	row := &dbCluster{
		ID:          cluster.ID,
		Name:        cluster.Name,
		Type:        cluster.Type,
		Group:       cluster.Group,
		SiteID:      cluster.SiteID,
		Description: cluster.Description,
		Tags:        StringList(cluster.Tags),
		Created:     cluster.Created,
		LastUpdated: cluster.LastUpdated,
	}
	query := `INSERT INTO cluster(id, name, type, cluster_group, site_id, description, tags, created, last_updated)
			  VALUES(:id, :name, :type, :cluster_group, :site_id, :description, :tags, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cluster %s: %w", cluster.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting cluster %s : %w", cluster.Name, err)
	}
	return nil
}

// GetCluster retrieves a cluster by ID.
func (repo *Repository) GetCluster(id uuid.UUID) (*domain.Cluster, error) {
	var row dbCluster
	err := repo.dbConn.Get(&row, `SELECT * FROM cluster WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cluster %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting cluster %s : %w", id, err)
	}
	return toDomainCluster(&row), nil
}

// ListClusters retrieves clusters matching the filter, ordered by name.
func (repo *Repository) ListClusters(filter domain.ClusterFilter) ([]*domain.Cluster, error) {
	query := `SELECT * FROM cluster WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Group != "" {
		query += ` AND cluster_group = ?`
		args = append(args, filter.Group)
	}
	if filter.SiteID != uuid.Nil {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY name ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbCluster
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing clusters : %w", err)
	}

	clusters := make([]*domain.Cluster, len(rows))
	for i, row := range rows {
		clusters[i] = toDomainCluster(row)
	}
	return clusters, nil
}

// UpdateCluster updates an existing cluster.
func (repo *Repository) UpdateCluster(cluster *domain.Cluster) error {
	query := `UPDATE cluster SET name = ?, type = ?, cluster_group = ?, site_id = ?,
				description = ?, tags = ?, last_updated = ?
			  WHERE id = ?`
	result, err := repo.dbConn.Exec(query, cluster.Name, cluster.Type, cluster.Group,
		cluster.SiteID, cluster.Description, StringList(cluster.Tags), cluster.LastUpdated, cluster.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cluster %s: %w", cluster.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating cluster %s : %w", cluster.ID, err)
	}
	return checkAffected(result, cluster.ID)
}

// DeleteCluster removes a cluster. Hosted VMs block the delete.
func (repo *Repository) DeleteCluster(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM cluster WHERE id = ?`, id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("cluster %s: %w", id, ErrReferenced)
		}
		return fmt.Errorf("deleting cluster %s : %w", id, err)
	}
	return checkAffected(result, id)
}

// CreateVirtualMachine inserts a new virtual machine.
func (repo *Repository) CreateVirtualMachine(vm *domain.VirtualMachine) error {
	row := fromDomainVirtualMachine(vm)
	query := `INSERT INTO virtual_machine(id, cluster_id, name, status, role, vcpus, memory_mb, disk_gb,
				primary_ip4_id, comments, tags, custom_fields, created, last_updated)
			  VALUES(:id, :cluster_id, :name, :status, :role, :vcpus, :memory_mb, :disk_gb,
				:primary_ip4_id, :comments, :tags, :custom_fields, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("virtual machine %s: %w", vm.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting virtual machine %s : %w", vm.Name, err)
	}
	return nil
}

// GetVirtualMachine retrieves a VM by ID.
func (repo *Repository) GetVirtualMachine(id uuid.UUID) (*domain.VirtualMachine, error) {
	var row dbVirtualMachine
	err := repo.dbConn.Get(&row, `SELECT * FROM virtual_machine WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("virtual machine %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting virtual machine %s : %w", id, err)
	}
	return toDomainVirtualMachine(&row), nil
}

// ListVirtualMachines retrieves VMs matching the filter, ordered by name.
func (repo *Repository) ListVirtualMachines(filter domain.VirtualMachineFilter) ([]*domain.VirtualMachine, error) {
	query := `SELECT * FROM virtual_machine WHERE 1=1`
	var args []any

	if filter.ClusterID != uuid.Nil {
		query += ` AND cluster_id = ?`
		args = append(args, filter.ClusterID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, filter.Role)
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(virtual_machine.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR comments LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY name ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbVirtualMachine
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing virtual machines : %w", err)
	}

	vms := make([]*domain.VirtualMachine, len(rows))
	for i, row := range rows {
		vms[i] = toDomainVirtualMachine(row)
	}
	return vms, nil
}

// UpdateVirtualMachine updates an existing VM.
func (repo *Repository) UpdateVirtualMachine(vm *domain.VirtualMachine) error {
	row := fromDomainVirtualMachine(vm)
	query := `UPDATE virtual_machine SET
				cluster_id = :cluster_id,
				name = :name,
				status = :status,
				role = :role,
				vcpus = :vcpus,
				memory_mb = :memory_mb,
				disk_gb = :disk_gb,
				primary_ip4_id = :primary_ip4_id,
				comments = :comments,
				tags = :tags,
				custom_fields = :custom_fields,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("virtual machine %s: %w", vm.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating virtual machine %s : %w", vm.ID, err)
	}
	return checkAffected(result, vm.ID)
}

// DeleteVirtualMachine removes a VM.
func (repo *Repository) DeleteVirtualMachine(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM virtual_machine WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting virtual machine %s : %w", id, err)
	}
	return checkAffected(result, id)
}
