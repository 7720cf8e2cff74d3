package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeviceStatus represents the operational status of a device.
type DeviceStatus string

const (
	DeviceStatusActive          DeviceStatus = "active"
	DeviceStatusPlanned         DeviceStatus = "planned"
	DeviceStatusStaged          DeviceStatus = "staged"
	DeviceStatusFailed          DeviceStatus = "failed"
	DeviceStatusOffline         DeviceStatus = "offline"
	DeviceStatusDecommissioning DeviceStatus = "decommissioning"
)

// DeviceFace identifies which face of a rack a device is mounted on.
type DeviceFace string

const (
	FaceFront DeviceFace = "front"
	FaceRear  DeviceFace = "rear"
)

// DeviceType describes a hardware model. Devices instantiate a type and
// inherit its height and depth characteristics.
type DeviceType struct {
	ID           uuid.UUID `json:"id"`
	Manufacturer string    `json:"manufacturer"`
	Model        string    `json:"model"`         // Unique per manufacturer.
	Slug         string    `json:"slug"`          // Unique URL-safe identifier.
	UHeight      int       `json:"u_height"`      // Height in rack units; 0 for zero-U devices.
	IsFullDepth  bool      `json:"is_full_depth"` // Full-depth devices block the opposite rack face.
	Description  string    `json:"description"`
	Created      time.Time `json:"created"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Validate checks device type fields that do not require repository access.
func (dt *DeviceType) Validate() error {
	if dt.Manufacturer == "" || dt.Model == "" {
		return errors.New("device type requires a manufacturer and a model")
	}
	if err := ValidateSlug(dt.Slug); err != nil {
		return fmt.Errorf("device type slug: %w", err)
	}
	if dt.UHeight < 0 || dt.UHeight > 100 {
		return fmt.Errorf("device type height must be between 0U and 100U, got %d", dt.UHeight)
	}
	return nil
}

// Device represents a piece of hardware installed at a site, optionally
// mounted into a rack at a specific unit position.
type Device struct {
	ID           uuid.UUID      `json:"id"`
	SiteID       uuid.UUID      `json:"site_id"`
	RackID       *uuid.UUID     `json:"rack_id"` // Nil when the device is not racked.
	Name         string         `json:"name"`    // Unique within the site.
	DeviceTypeID uuid.UUID      `json:"device_type_id"`
	Role         string         `json:"role"` // Functional role, e.g. "router", "pdu", "server".
	Status       DeviceStatus   `json:"status"`
	Position     *int           `json:"position"` // Lowest rack unit occupied; nil for unpositioned or zero-U devices.
	Face         DeviceFace     `json:"face"`     // Face the device is mounted on; meaningful only when racked.
	Serial       string         `json:"serial"`
	AssetTag     *string        `json:"asset_tag"` // Unique inventory tag; nil when untagged.
	PrimaryIP4ID *uuid.UUID     `json:"primary_ip4_id"`
	PrimaryIP6ID *uuid.UUID     `json:"primary_ip6_id"`
	Comments     string         `json:"comments"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	Created      time.Time      `json:"created"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Validate checks device fields that do not require repository access.
func (d *Device) Validate() error {
	if d.Name == "" {
		return errors.New("device name is required")
	}
	if d.SiteID == uuid.Nil {
		return errors.New("device must belong to a site")
	}
	if d.DeviceTypeID == uuid.Nil {
		return errors.New("device must reference a device type")
	}
	switch d.Status {
	case DeviceStatusActive, DeviceStatusPlanned, DeviceStatusStaged,
		DeviceStatusFailed, DeviceStatusOffline, DeviceStatusDecommissioning:
	default:
		return fmt.Errorf("invalid device status %q", d.Status)
	}
	if d.Position != nil {
		if d.RackID == nil {
			return errors.New("a rack position requires a rack")
		}
		if *d.Position < 1 {
			return fmt.Errorf("rack position must be at least 1, got %d", *d.Position)
		}
		if d.Face != FaceFront && d.Face != FaceRear {
			return fmt.Errorf("a racked device needs a mounting face, got %q", d.Face)
		}
	}
	return nil
}

// DeviceTypeFilter narrows ListDeviceTypes results.
type DeviceTypeFilter struct {
	Manufacturer string
	Query        string
	Limit        int
	Offset       int
}

// DeviceFilter narrows ListDevices results. Zero values are ignored.
type DeviceFilter struct {
	SiteID       uuid.UUID
	RackID       uuid.UUID
	DeviceTypeID uuid.UUID
	Role         string
	Status       DeviceStatus
	Tag          string
	Name         string // Exact name match.
	Query        string
	Limit        int
	Offset       int
}

// DeviceRepository defines the interface for managing device types and
// devices.
type DeviceRepository interface {
	CreateDeviceType(dt *DeviceType) error
	GetDeviceType(id uuid.UUID) (*DeviceType, error)
	GetDeviceTypeBySlug(slug string) (*DeviceType, error)
	ListDeviceTypes(filter DeviceTypeFilter) ([]*DeviceType, error)
	UpdateDeviceType(dt *DeviceType) error
	DeleteDeviceType(id uuid.UUID) error

	CreateDevice(device *Device) error
	GetDevice(id uuid.UUID) (*Device, error)
	ListDevices(filter DeviceFilter) ([]*Device, error)
	UpdateDevice(device *Device) error
	DeleteDevice(id uuid.UUID) error
}
