package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.CableRepository = (*Repository)(nil)

// ErrNoCableForInterface is returned when an interface has no cable attached.
var ErrNoCableForInterface = errors.New("interface has no cable attached")

// dbCable represents a cable as stored in the database.
type dbCable struct {
	ID           uuid.UUID       `db:"id"`
	AInterfaceID uuid.UUID       `db:"a_interface_id"`
	BInterfaceID uuid.UUID       `db:"b_interface_id"`
	Type         string          `db:"type"`
	Status       string          `db:"status"`
	Label        string          `db:"label"`
	Color        string          `db:"color"`
	Length       sql.NullFloat64 `db:"length"`
	LengthUnit   string          `db:"length_unit"`
	AbsLength    sql.NullFloat64 `db:"abs_length"`
	Tags         StringList      `db:"tags"`
	Created      time.Time       `db:"created"`
	LastUpdated  time.Time       `db:"last_updated"`
}

func fromDomainCable(cable *domain.Cable) *dbCable {
	row := &dbCable{
		ID:           cable.ID,
		AInterfaceID: cable.AInterfaceID,
		BInterfaceID: cable.BInterfaceID,
		Type:         string(cable.Type),
		Status:       string(cable.Status),
		Label:        cable.Label,
		Color:        cable.Color,
		LengthUnit:   cable.LengthUnit,
		Tags:         StringList(cable.Tags),
		Created:      cable.Created,
		LastUpdated:  cable.LastUpdated,
	}
	if cable.Length != nil {
		row.Length = sql.NullFloat64{Float64: *cable.Length, Valid: true}
	}
	if cable.AbsLength != nil {
		row.AbsLength = sql.NullFloat64{Float64: *cable.AbsLength, Valid: true}
	}
	return row
}

func toDomainCable(row *dbCable) *domain.Cable {
	cable := &domain.Cable{
		ID:           row.ID,
		AInterfaceID: row.AInterfaceID,
		BInterfaceID: row.BInterfaceID,
		Type:         domain.CableType(row.Type),
		Status:       domain.CableStatus(row.Status),
		Label:        row.Label,
		Color:        row.Color,
		LengthUnit:   row.LengthUnit,
		Tags:         []string(row.Tags),
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}
	if row.Length.Valid {
		length := row.Length.Float64
		cable.Length = &length
	}
	if row.AbsLength.Valid {
		abs := row.AbsLength.Float64
		cable.AbsLength = &abs
	}
	return cable
}

// terminationInUse reports ErrDuplicate when either interface already
// terminates another cable. The per-column UNIQUEs cannot see an interface
// that sits on the A side of one cable and the B side of another, so both
// columns are checked for both terminations.
func (repo *Repository) terminationInUse(a, b, exclude uuid.UUID) error {
	var count int
	query := `SELECT COUNT(*) FROM cable
			  WHERE (a_interface_id IN (?, ?) OR b_interface_id IN (?, ?)) AND id != ?`
	if err := repo.dbConn.Get(&count, query, a, b, a, b, exclude); err != nil {
		return fmt.Errorf("checking cable terminations : %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cable termination in use: %w", ErrDuplicate)
	}
	return nil
}

// CreateCable inserts a new cable. An interface may terminate at most one
// cable, on either side.
func (repo *Repository) CreateCable(cable *domain.Cable) error {
	if err := repo.terminationInUse(cable.AInterfaceID, cable.BInterfaceID, cable.ID); err != nil {
		return err
	}
	row := fromDomainCable(cable)
	query := `INSERT INTO cable(id, a_interface_id, b_interface_id, type, status, label, color,
				length, length_unit, abs_length, tags, created, last_updated)
			  VALUES(:id, :a_interface_id, :b_interface_id, :type, :status, :label, :color,
				:length, :length_unit, :abs_length, :tags, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cable termination in use: %w", ErrDuplicate)
		}
		return fmt.Errorf("inserting cable : %w", err)
	}
	return nil
}

// GetCable retrieves a cable by ID.
func (repo *Repository) GetCable(id uuid.UUID) (*domain.Cable, error) {
	var row dbCable
	err := repo.dbConn.Get(&row, `SELECT * FROM cable WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cable %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting cable %s : %w", id, err)
	}
	return toDomainCable(&row), nil
}

// GetCableForInterface returns the cable terminating on the given interface.
func (repo *Repository) GetCableForInterface(interfaceID uuid.UUID) (*domain.Cable, error) {
	var row dbCable
	query := `SELECT * FROM cable WHERE a_interface_id = ? OR b_interface_id = ?`
	err := repo.dbConn.Get(&row, query, interfaceID, interfaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("interface %s: %w", interfaceID, ErrNoCableForInterface)
		}
		return nil, fmt.Errorf("getting cable for interface %s : %w", interfaceID, err)
	}
	return toDomainCable(&row), nil
}

// ListCables retrieves cables matching the filter, ordered by normalized
// length then creation time.
func (repo *Repository) ListCables(filter domain.CableFilter) ([]*domain.Cable, error) {
	query := `SELECT * FROM cable WHERE 1=1`
	var args []any

	if filter.InterfaceID != uuid.Nil {
		query += ` AND (a_interface_id = ? OR b_interface_id = ?)`
		args = append(args, filter.InterfaceID, filter.InterfaceID)
	}
	if filter.DeviceID != uuid.Nil {
		query += ` AND (a_interface_id IN (SELECT id FROM interface WHERE device_id = ?)
				   OR b_interface_id IN (SELECT id FROM interface WHERE device_id = ?))`
		args = append(args, filter.DeviceID, filter.DeviceID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(cable.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	query += ` ORDER BY abs_length IS NULL, abs_length ASC, created ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbCable
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing cables : %w", err)
	}

	cables := make([]*domain.Cable, len(rows))
	for i, row := range rows {
		cables[i] = toDomainCable(row)
	}
	return cables, nil
}

// UpdateCable updates an existing cable.
func (repo *Repository) UpdateCable(cable *domain.Cable) error {
	if err := repo.terminationInUse(cable.AInterfaceID, cable.BInterfaceID, cable.ID); err != nil {
		return err
	}
	row := fromDomainCable(cable)
	query := `UPDATE cable SET
				a_interface_id = :a_interface_id,
				b_interface_id = :b_interface_id,
				type = :type,
				status = :status,
				label = :label,
				color = :color,
				length = :length,
				length_unit = :length_unit,
				abs_length = :abs_length,
				tags = :tags,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cable termination in use: %w", ErrDuplicate)
		}
		return fmt.Errorf("updating cable %s : %w", cable.ID, err)
	}
	return checkAffected(result, cable.ID)
}

// DeleteCable removes a cable.
func (repo *Repository) DeleteCable(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM cable WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting cable %s : %w", id, err)
	}
	return checkAffected(result, id)
}
