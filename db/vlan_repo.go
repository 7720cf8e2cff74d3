package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.VLANRepository = (*Repository)(nil)

// dbVLAN represents a VLAN as stored in the database. The group column is
// named vlan_group because GROUP is a reserved word.
type dbVLAN struct {
	ID          uuid.UUID  `db:"id"`
	VID         int        `db:"vid"`
	Name        string     `db:"name"`
	Group       string     `db:"vlan_group"`
	SiteID      *uuid.UUID `db:"site_id"`
	Status      string     `db:"status"`
	Role        string     `db:"role"`
	Description string     `db:"description"`
	Tags        StringList `db:"tags"`
	Created     time.Time  `db:"created"`
	LastUpdated time.Time  `db:"last_updated"`
}

func fromDomainVLAN(vlan *domain.VLAN) *dbVLAN {
	return &dbVLAN{
		ID:          vlan.ID,
		VID:         vlan.VID,
		Name:        vlan.Name,
		Group:       vlan.Group,
		SiteID:      vlan.SiteID,
		Status:      string(vlan.Status),
		Role:        vlan.Role,
		Description: vlan.Description,
		Tags:        StringList(vlan.Tags),
		Created:     vlan.Created,
		LastUpdated: vlan.LastUpdated,
	}
}

func toDomainVLAN(row *dbVLAN) *domain.VLAN {
	return &domain.VLAN{
		ID:          row.ID,
		VID:         row.VID,
		Name:        row.Name,
		Group:       row.Group,
		SiteID:      row.SiteID,
		Status:      domain.VLANStatus(row.Status),
		Role:        row.Role,
		Description: row.Description,
		Tags:        []string(row.Tags),
		Created:     row.Created,
		LastUpdated: row.LastUpdated,
	}
}

// CreateVLAN inserts a new VLAN.
func (repo *Repository) CreateVLAN(vlan *domain.VLAN) error {
	row := fromDomainVLAN(vlan)
	query := `INSERT INTO vlan(id, vid, name, vlan_group, site_id, status, role, description, tags, created, last_updated)
			  VALUES(:id, :vid, :name, :vlan_group, :site_id, :status, :role, :description, :tags, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("vlan %d in group %q: %w", vlan.VID, vlan.Group, ErrDuplicate)
		}
		return fmt.Errorf("inserting vlan %d : %w", vlan.VID, err)
	}
	return nil
}

// GetVLAN retrieves a VLAN by ID.
func (repo *Repository) GetVLAN(id uuid.UUID) (*domain.VLAN, error) {
	var row dbVLAN
	err := repo.dbConn.Get(&row, `SELECT * FROM vlan WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vlan %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting vlan %s : %w", id, err)
	}
	return toDomainVLAN(&row), nil
}

// ListVLANs retrieves VLANs matching the filter, ordered by group and VID.
func (repo *Repository) ListVLANs(filter domain.VLANFilter) ([]*domain.VLAN, error) {
	query := `SELECT * FROM vlan WHERE 1=1`
	var args []any

	if filter.Group != "" {
		query += ` AND vlan_group = ?`
		args = append(args, filter.Group)
	}
	if filter.SiteID != uuid.Nil {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, filter.Role)
	}
	if filter.VID != 0 {
		query += ` AND vid = ?`
		args = append(args, filter.VID)
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(vlan.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY vlan_group, vid ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbVLAN
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing vlans : %w", err)
	}

	vlans := make([]*domain.VLAN, len(rows))
	for i, row := range rows {
		vlans[i] = toDomainVLAN(row)
	}
	return vlans, nil
}

// UpdateVLAN updates an existing VLAN.
func (repo *Repository) UpdateVLAN(vlan *domain.VLAN) error {
	row := fromDomainVLAN(vlan)
	query := `UPDATE vlan SET
				vid = :vid,
				name = :name,
				vlan_group = :vlan_group,
				site_id = :site_id,
				status = :status,
				role = :role,
				description = :description,
				tags = :tags,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("vlan %d in group %q: %w", vlan.VID, vlan.Group, ErrDuplicate)
		}
		return fmt.Errorf("updating vlan %s : %w", vlan.ID, err)
	}
	return checkAffected(result, vlan.ID)
}

// DeleteVLAN removes a VLAN and detaches it from any prefixes.
func (repo *Repository) DeleteVLAN(id uuid.UUID) error {
	_, err := repo.dbConn.Exec(`UPDATE prefix SET vlan_id = NULL WHERE vlan_id = ?`, id)
	if err != nil {
		return fmt.Errorf("detaching vlan %s from prefixes : %w", id, err)
	}
	result, err := repo.dbConn.Exec(`DELETE FROM vlan WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting vlan %s : %w", id, err)
	}
	return checkAffected(result, id)
}
