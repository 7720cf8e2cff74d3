package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.InterfaceRepository = (*Repository)(nil)

// dbInterface represents a device termination as stored in the database.
type dbInterface struct {
	ID           uuid.UUID     `db:"id"`
	DeviceID     uuid.UUID     `db:"device_id"`
	Name         string        `db:"name"`
	Kind         string        `db:"kind"`
	Enabled      bool          `db:"enabled"`
	MTU          sql.NullInt64 `db:"mtu"`
	MACAddress   string        `db:"mac_address"`
	MgmtOnly     bool          `db:"mgmt_only"`
	PairedPortID *uuid.UUID    `db:"paired_port_id"`
	Description  string        `db:"description"`
}

func fromDomainInterface(iface *domain.Interface) *dbInterface {
	row := &dbInterface{
		ID:           iface.ID,
		DeviceID:     iface.DeviceID,
		Name:         iface.Name,
		Kind:         string(iface.Kind),
		Enabled:      iface.Enabled,
		MACAddress:   iface.MACAddress,
		MgmtOnly:     iface.MgmtOnly,
		PairedPortID: iface.PairedPortID,
		Description:  iface.Description,
	}
	if iface.MTU != nil {
		row.MTU = sql.NullInt64{Int64: int64(*iface.MTU), Valid: true}
	}
	return row
}

func toDomainInterface(row *dbInterface) *domain.Interface {
	iface := &domain.Interface{
		ID:           row.ID,
		DeviceID:     row.DeviceID,
		Name:         row.Name,
		Kind:         domain.InterfaceKind(row.Kind),
		Enabled:      row.Enabled,
		MACAddress:   row.MACAddress,
		MgmtOnly:     row.MgmtOnly,
		PairedPortID: row.PairedPortID,
		Description:  row.Description,
	}
	if row.MTU.Valid {
		mtu := int(row.MTU.Int64)
		iface.MTU = &mtu
	}
	return iface
}

// CreateInterface inserts a new interface.
func (repo *Repository) CreateInterface(iface *domain.Interface) error {
	row := fromDomainInterface(iface)
	query := `INSERT INTO interface(id, device_id, name, kind, enabled, mtu, mac_address, mgmt_only, paired_port_id, description)
			  VALUES(:id, :device_id, :name, :kind, :enabled, :mtu, :mac_address, :mgmt_only, :paired_port_id, :description)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("interface %s: %w", iface.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting interface %s : %w", iface.Name, err)
	}
	return nil
}

// GetInterface retrieves an interface by ID.
func (repo *Repository) GetInterface(id uuid.UUID) (*domain.Interface, error) {
	var row dbInterface
	err := repo.dbConn.Get(&row, `SELECT * FROM interface WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("interface %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting interface %s : %w", id, err)
	}
	return toDomainInterface(&row), nil
}

// ListInterfaces retrieves interfaces matching the filter, ordered by device
// and name.
func (repo *Repository) ListInterfaces(filter domain.InterfaceFilter) ([]*domain.Interface, error) {
	query := `SELECT * FROM interface WHERE 1=1`
	var args []any

	if filter.DeviceID != uuid.Nil {
		query += ` AND device_id = ?`
		args = append(args, filter.DeviceID)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY device_id, name ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbInterface
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing interfaces : %w", err)
	}

	ifaces := make([]*domain.Interface, len(rows))
	for i, row := range rows {
		ifaces[i] = toDomainInterface(row)
	}
	return ifaces, nil
}

// UpdateInterface updates an existing interface.
func (repo *Repository) UpdateInterface(iface *domain.Interface) error {
	row := fromDomainInterface(iface)
	query := `UPDATE interface SET
				device_id = :device_id,
				name = :name,
				kind = :kind,
				enabled = :enabled,
				mtu = :mtu,
				mac_address = :mac_address,
				mgmt_only = :mgmt_only,
				paired_port_id = :paired_port_id,
				description = :description
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("interface %s: %w", iface.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating interface %s : %w", iface.ID, err)
	}
	return checkAffected(result, iface.ID)
}

// DeleteInterface removes an interface. Its cable cascades away and any IP
// assignments are cleared by the schema.
func (repo *Repository) DeleteInterface(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM interface WHERE id = ?`, id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("interface %s: %w", id, ErrReferenced)
		}
		return fmt.Errorf("deleting interface %s : %w", id, err)
	}
	return checkAffected(result, id)
}
