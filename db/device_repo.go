package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.DeviceRepository = (*Repository)(nil)

// dbDeviceType represents a device type as stored in the database.
type dbDeviceType struct {
	ID           uuid.UUID `db:"id"`
	Manufacturer string    `db:"manufacturer"`
	Model        string    `db:"model"`
	Slug         string    `db:"slug"`
	UHeight      int       `db:"u_height"`
	IsFullDepth  bool      `db:"is_full_depth"`
	Description  string    `db:"description"`
	Created      time.Time `db:"created"`
	LastUpdated  time.Time `db:"last_updated"`
}

func toDomainDeviceType(row *dbDeviceType) *domain.DeviceType {
	return &domain.DeviceType{
		ID:           row.ID,
		Manufacturer: row.Manufacturer,
		Model:        row.Model,
		Slug:         row.Slug,
		UHeight:      row.UHeight,
		IsFullDepth:  row.IsFullDepth,
		Description:  row.Description,
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}
}

// dbDevice represents a device as stored in the database. Optional references
// use pointer types so NULL columns round-trip cleanly.
type dbDevice struct {
	ID           uuid.UUID      `db:"id"`
	SiteID       uuid.UUID      `db:"site_id"`
	RackID       *uuid.UUID     `db:"rack_id"`
	Name         string         `db:"name"`
	DeviceTypeID uuid.UUID      `db:"device_type_id"`
	Role         string         `db:"role"`
	Status       string         `db:"status"`
	Position     sql.NullInt64  `db:"position"`
	Face         string         `db:"face"`
	Serial       string         `db:"serial"`
	AssetTag     sql.NullString `db:"asset_tag"`
	PrimaryIP4ID *uuid.UUID     `db:"primary_ip4_id"`
	PrimaryIP6ID *uuid.UUID     `db:"primary_ip6_id"`
	Comments     string         `db:"comments"`
	Tags         StringList     `db:"tags"`
	CustomFields Fields         `db:"custom_fields"`
	Created      time.Time      `db:"created"`
	LastUpdated  time.Time      `db:"last_updated"`
}

func fromDomainDevice(device *domain.Device) *dbDevice {
	row := &dbDevice{
		ID:           device.ID,
		SiteID:       device.SiteID,
		RackID:       device.RackID,
		Name:         device.Name,
		DeviceTypeID: device.DeviceTypeID,
		Role:         device.Role,
		Status:       string(device.Status),
		Face:         string(device.Face),
		Serial:       device.Serial,
		PrimaryIP4ID: device.PrimaryIP4ID,
		PrimaryIP6ID: device.PrimaryIP6ID,
		Comments:     device.Comments,
		Tags:         StringList(device.Tags),
		CustomFields: Fields(device.CustomFields),
		Created:      device.Created,
		LastUpdated:  device.LastUpdated,
	}
	if device.Position != nil {
		row.Position = sql.NullInt64{Int64: int64(*device.Position), Valid: true}
	}
	if device.AssetTag != nil {
		row.AssetTag = sql.NullString{String: *device.AssetTag, Valid: true}
	}
	return row
}

func toDomainDevice(row *dbDevice) *domain.Device {
	device := &domain.Device{
		ID:           row.ID,
		SiteID:       row.SiteID,
		RackID:       row.RackID,
		Name:         row.Name,
		DeviceTypeID: row.DeviceTypeID,
		Role:         row.Role,
		Status:       domain.DeviceStatus(row.Status),
		Face:         domain.DeviceFace(row.Face),
		Serial:       row.Serial,
		PrimaryIP4ID: row.PrimaryIP4ID,
		PrimaryIP6ID: row.PrimaryIP6ID,
		Comments:     row.Comments,
		Tags:         []string(row.Tags),
		CustomFields: map[string]any(row.CustomFields),
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}
	if row.Position.Valid {
		pos := int(row.Position.Int64)
		device.Position = &pos
	}
	if row.AssetTag.Valid {
		tag := row.AssetTag.String
		device.AssetTag = &tag
	}
	return device
}

// CreateDeviceType inserts a new device type.
func (repo *Repository) CreateDeviceType(dt *domain.DeviceType) error {
	query := `INSERT INTO device_type(id, manufacturer, model, slug, u_height, is_full_depth, description, created, last_updated)
			  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := repo.dbConn.Exec(query, dt.ID, dt.Manufacturer, dt.Model, dt.Slug,
		dt.UHeight, dt.IsFullDepth, dt.Description, dt.Created, dt.LastUpdated)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("device type %s %s: %w", dt.Manufacturer, dt.Model, ErrDuplicate)
		}
		return fmt.Errorf("inserting device type %s : %w", dt.Model, err)
	}
	return nil
}

// GetDeviceType retrieves a device type by ID.
func (repo *Repository) GetDeviceType(id uuid.UUID) (*domain.DeviceType, error) {
	var row dbDeviceType
	err := repo.dbConn.Get(&row, `SELECT * FROM device_type WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device type %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting device type %s : %w", id, err)
	}
	return toDomainDeviceType(&row), nil
}

// GetDeviceTypeBySlug retrieves a device type by its slug.
func (repo *Repository) GetDeviceTypeBySlug(slug string) (*domain.DeviceType, error) {
	var row dbDeviceType
	err := repo.dbConn.Get(&row, `SELECT * FROM device_type WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device type %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("getting device type %q : %w", slug, err)
	}
	return toDomainDeviceType(&row), nil
}

// ListDeviceTypes retrieves device types matching the filter.
func (repo *Repository) ListDeviceTypes(filter domain.DeviceTypeFilter) ([]*domain.DeviceType, error) {
	query := `SELECT * FROM device_type WHERE 1=1`
	var args []any

	if filter.Manufacturer != "" {
		query += ` AND manufacturer = ?`
		args = append(args, filter.Manufacturer)
	}
	if filter.Query != "" {
		query += ` AND (manufacturer LIKE ? OR model LIKE ? OR slug LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY manufacturer, model ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbDeviceType
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing device types : %w", err)
	}

	types := make([]*domain.DeviceType, len(rows))
	for i, row := range rows {
		types[i] = toDomainDeviceType(row)
	}
	return types, nil
}

// UpdateDeviceType updates an existing device type.
func (repo *Repository) UpdateDeviceType(dt *domain.DeviceType) error {
	query := `UPDATE device_type SET manufacturer = ?, model = ?, slug = ?, u_height = ?,
				is_full_depth = ?, description = ?, last_updated = ?
			  WHERE id = ?`
	result, err := repo.dbConn.Exec(query, dt.Manufacturer, dt.Model, dt.Slug,
		dt.UHeight, dt.IsFullDepth, dt.Description, dt.LastUpdated, dt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("device type %s %s: %w", dt.Manufacturer, dt.Model, ErrDuplicate)
		}
		return fmt.Errorf("updating device type %s : %w", dt.ID, err)
	}
	return checkAffected(result, dt.ID)
}

// DeleteDeviceType removes a device type. Devices of the type block the
// delete.
func (repo *Repository) DeleteDeviceType(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM device_type WHERE id = ?`, id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("device type %s: %w", id, ErrReferenced)
		}
		return fmt.Errorf("deleting device type %s : %w", id, err)
	}
	return checkAffected(result, id)
}

// CreateDevice inserts a new device.
func (repo *Repository) CreateDevice(device *domain.Device) error {
	row := fromDomainDevice(device)
	query := `INSERT INTO device(id, site_id, rack_id, name, device_type_id, role, status, position, face,
				serial, asset_tag, primary_ip4_id, primary_ip6_id, comments, tags, custom_fields, created, last_updated)
			  VALUES(:id, :site_id, :rack_id, :name, :device_type_id, :role, :status, :position, :face,
				:serial, :asset_tag, :primary_ip4_id, :primary_ip6_id, :comments, :tags, :custom_fields, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("device %s: %w", device.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting device %s : %w", device.Name, err)
	}
	return nil
}

// GetDevice retrieves a device by ID.
func (repo *Repository) GetDevice(id uuid.UUID) (*domain.Device, error) {
	var row dbDevice
	err := repo.dbConn.Get(&row, `SELECT * FROM device WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting device %s : %w", id, err)
	}
	return toDomainDevice(&row), nil
}

// ListDevices retrieves devices matching the filter, ordered by name.
func (repo *Repository) ListDevices(filter domain.DeviceFilter) ([]*domain.Device, error) {
	query := `SELECT * FROM device WHERE 1=1`
	var args []any

	if filter.SiteID != uuid.Nil {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.RackID != uuid.Nil {
		query += ` AND rack_id = ?`
		args = append(args, filter.RackID)
	}
	if filter.DeviceTypeID != uuid.Nil {
		query += ` AND device_type_id = ?`
		args = append(args, filter.DeviceTypeID)
	}
	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(device.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR serial LIKE ? OR comments LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY name ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbDevice
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing devices : %w", err)
	}

	devices := make([]*domain.Device, len(rows))
	for i, row := range rows {
		devices[i] = toDomainDevice(row)
	}
	return devices, nil
}

// UpdateDevice updates an existing device.
func (repo *Repository) UpdateDevice(device *domain.Device) error {
	row := fromDomainDevice(device)
	query := `UPDATE device SET
				site_id = :site_id,
				rack_id = :rack_id,
				name = :name,
				device_type_id = :device_type_id,
				role = :role,
				status = :status,
				position = :position,
				face = :face,
				serial = :serial,
				asset_tag = :asset_tag,
				primary_ip4_id = :primary_ip4_id,
				primary_ip6_id = :primary_ip6_id,
				comments = :comments,
				tags = :tags,
				custom_fields = :custom_fields,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("device %s: %w", device.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating device %s : %w", device.ID, err)
	}
	return checkAffected(result, device.ID)
}

// DeleteDevice removes a device and, through cascades, its interfaces and
// their cables.
func (repo *Repository) DeleteDevice(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM device WHERE id = ?`, id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("device %s: %w", id, ErrReferenced)
		}
		return fmt.Errorf("deleting device %s : %w", id, err)
	}
	return checkAffected(result, id)
}
