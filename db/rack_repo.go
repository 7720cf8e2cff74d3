package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.RackRepository = (*Repository)(nil)

// dbRack represents a rack as stored in the database.
type dbRack struct {
	ID           uuid.UUID  `db:"id"`
	SiteID       uuid.UUID  `db:"site_id"`
	Name         string     `db:"name"`
	Status       string     `db:"status"`
	Role         string     `db:"role"`
	UHeight      int        `db:"u_height"`
	Width        int        `db:"width"`
	Description  string     `db:"description"`
	Tags         StringList `db:"tags"`
	CustomFields Fields     `db:"custom_fields"`
	Created      time.Time  `db:"created"`
	LastUpdated  time.Time  `db:"last_updated"`
}

func fromDomainRack(rack *domain.Rack) *dbRack {
	return &dbRack{
		ID:           rack.ID,
		SiteID:       rack.SiteID,
		Name:         rack.Name,
		Status:       string(rack.Status),
		Role:         rack.Role,
		UHeight:      rack.UHeight,
		Width:        rack.Width,
		Description:  rack.Description,
		Tags:         StringList(rack.Tags),
		CustomFields: Fields(rack.CustomFields),
		Created:      rack.Created,
		LastUpdated:  rack.LastUpdated,
	}
}

func toDomainRack(row *dbRack) *domain.Rack {
	return &domain.Rack{
		ID:           row.ID,
		SiteID:       row.SiteID,
		Name:         row.Name,
		Status:       domain.RackStatus(row.Status),
		Role:         row.Role,
		UHeight:      row.UHeight,
		Width:        row.Width,
		Description:  row.Description,
		Tags:         []string(row.Tags),
		CustomFields: map[string]any(row.CustomFields),
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}
}

// dbRackReservation represents a rack reservation as stored in the database.
type dbRackReservation struct {
	ID          uuid.UUID `db:"id"`
	RackID      uuid.UUID `db:"rack_id"`
	Units       IntList   `db:"units"`
	Description string    `db:"description"`
	CreatedBy   string    `db:"created_by"`
	Created     time.Time `db:"created"`
}

func toDomainRackReservation(row *dbRackReservation) *domain.RackReservation {
	return &domain.RackReservation{
		ID:          row.ID,
		RackID:      row.RackID,
		Units:       []int(row.Units),
		Description: row.Description,
		CreatedBy:   row.CreatedBy,
		Created:     row.Created,
	}
}

// CreateRack inserts a new rack.
func (repo *Repository) CreateRack(rack *domain.Rack) error {
	row := fromDomainRack(rack)
	query := `INSERT INTO rack(id, site_id, name, status, role, u_height, width, description, tags, custom_fields, created, last_updated)
			  VALUES(:id, :site_id, :name, :status, :role, :u_height, :width, :description, :tags, :custom_fields, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rack %s: %w", rack.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting rack %s : %w", rack.Name, err)
	}
	return nil
}

// GetRack retrieves a rack by ID.
func (repo *Repository) GetRack(id uuid.UUID) (*domain.Rack, error) {
	var row dbRack
	err := repo.dbConn.Get(&row, `SELECT * FROM rack WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rack %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting rack %s : %w", id, err)
	}
	return toDomainRack(&row), nil
}

// ListRacks retrieves racks matching the filter, ordered by site and name.
func (repo *Repository) ListRacks(filter domain.RackFilter) ([]*domain.Rack, error) {
	query := `SELECT * FROM rack WHERE 1=1`
	var args []any

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
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(rack.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY site_id, name ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbRack
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing racks : %w", err)
	}

	racks := make([]*domain.Rack, len(rows))
	for i, row := range rows {
		racks[i] = toDomainRack(row)
	}
	return racks, nil
}

// UpdateRack updates an existing rack.
func (repo *Repository) UpdateRack(rack *domain.Rack) error {
	row := fromDomainRack(rack)
	query := `UPDATE rack SET
				site_id = :site_id,
				name = :name,
				status = :status,
				role = :role,
				u_height = :u_height,
				width = :width,
				description = :description,
				tags = :tags,
				custom_fields = :custom_fields,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rack %s: %w", rack.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating rack %s : %w", rack.ID, err)
	}
	return checkAffected(result, rack.ID)
}

// DeleteRack removes a rack. Reservations cascade; mounted devices block the
// delete.
func (repo *Repository) DeleteRack(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM rack WHERE id = ?`, id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("rack %s: %w", id, ErrReferenced)
		}
		return fmt.Errorf("deleting rack %s : %w", id, err)
	}
	return checkAffected(result, id)
}

// CreateRackReservation inserts a new reservation.
func (repo *Repository) CreateRackReservation(res *domain.RackReservation) error {
	row := &dbRackReservation{
		ID:          res.ID,
		RackID:      res.RackID,
		Units:       IntList(res.Units),
		Description: res.Description,
		CreatedBy:   res.CreatedBy,
		Created:     res.Created,
	}
	query := `INSERT INTO rack_reservation(id, rack_id, units, description, created_by, created)
			  VALUES(:id, :rack_id, :units, :description, :created_by, :created)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		return fmt.Errorf("inserting reservation for rack %s : %w", res.RackID, err)
	}
	return nil
}

// ListRackReservations retrieves the reservations for a rack.
func (repo *Repository) ListRackReservations(rackID uuid.UUID) ([]*domain.RackReservation, error) {
	var rows []*dbRackReservation
	query := `SELECT * FROM rack_reservation WHERE rack_id = ? ORDER BY created ASC`
	if err := repo.dbConn.Select(&rows, query, rackID); err != nil {
		return nil, fmt.Errorf("listing reservations for rack %s : %w", rackID, err)
	}

	reservations := make([]*domain.RackReservation, len(rows))
	for i, row := range rows {
		reservations[i] = toDomainRackReservation(row)
	}
	return reservations, nil
}

// DeleteRackReservation removes a reservation.
func (repo *Repository) DeleteRackReservation(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM rack_reservation WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting reservation %s : %w", id, err)
	}
	return checkAffected(result, id)
}
