package bulkimport

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sashashura/netbox/domain"
)

// deviceTypeDefinition mirrors the community device-type YAML format. The
// interface list is accepted for compatibility but only the chassis fields
// are imported.
type deviceTypeDefinition struct {
	Manufacturer string  `yaml:"manufacturer"`
	Model        string  `yaml:"model"`
	Slug         string  `yaml:"slug"`
	UHeight      float64 `yaml:"u_height"`
	IsFullDepth  bool    `yaml:"is_full_depth"`
	Comments     string  `yaml:"comments"`
	Interfaces   []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"interfaces"`
}

// ImportDeviceType parses a device-type YAML definition and creates the
// device type. Fractional heights round up, since a half-U device still
// consumes a full slot in the elevation.
func (imp *Importer) ImportDeviceType(r io.Reader) (*domain.DeviceType, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading device type definition : %w", err)
	}

	var def deviceTypeDefinition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parsing device type definition : %w", err)
	}

	uHeight := int(def.UHeight)
	if def.UHeight > float64(uHeight) {
		uHeight++
	}

	now := time.Now().UTC()
	deviceType := &domain.DeviceType{
		ID:           newID(),
		Manufacturer: def.Manufacturer,
		Model:        def.Model,
		Slug:         def.Slug,
		UHeight:      uHeight,
		IsFullDepth:  def.IsFullDepth,
		Description:  def.Comments,
		Created:      now,
		LastUpdated:  now,
	}
	if err := deviceType.Validate(); err != nil {
		return nil, err
	}
	if err := imp.repo.CreateDeviceType(deviceType); err != nil {
		return nil, fmt.Errorf("creating device type %s : %w", deviceType.Slug, err)
	}
	if imp.OnCreate != nil {
		imp.OnCreate(domain.KindDeviceType, deviceType.ID, deviceType)
	}

	imp.logger.Info().
		Str("slug", deviceType.Slug).
		Int("ignored_interfaces", len(def.Interfaces)).
		Msg("device type imported")
	return deviceType, nil
}
