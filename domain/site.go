package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// SiteStatus represents the operational status of a site.
type SiteStatus string

const (
	SiteStatusActive  SiteStatus = "active"
	SiteStatusPlanned SiteStatus = "planned"
	SiteStatusRetired SiteStatus = "retired"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ErrInvalidSlug is returned when a slug contains characters outside
// lowercase letters, digits, and single hyphens.
var ErrInvalidSlug = errors.New("slug must match ^[a-z0-9]+(-[a-z0-9]+)*$")

// ValidateSlug checks that a slug is URL-safe.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%q: %w", slug, ErrInvalidSlug)
	}
	return nil
}

// Site represents a physical location (a building or data center) that
// contains racks and devices. Prefixes and VLANs may also be scoped to a site.
type Site struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"` // Unique human-readable name.
	Slug         string         `json:"slug"` // Unique URL-safe identifier.
	Status       SiteStatus     `json:"status"`
	Region       string         `json:"region"`   // Free-form geographic grouping, e.g. "eu-central".
	Facility     string         `json:"facility"` // Data center or facility designation from the operator.
	Description  string         `json:"description"`
	Tags         []string       `json:"tags"`
	CustomFields map[string]any `json:"custom_fields"`
	Created      time.Time      `json:"created"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// Validate checks site fields that do not require repository access.
func (s *Site) Validate() error {
	if s.Name == "" {
		return errors.New("site name is required")
	}
	if err := ValidateSlug(s.Slug); err != nil {
		return fmt.Errorf("site slug: %w", err)
	}
	switch s.Status {
	case SiteStatusActive, SiteStatusPlanned, SiteStatusRetired:
	default:
		return fmt.Errorf("invalid site status %q", s.Status)
	}
	return nil
}

// SiteFilter narrows ListSites results. Zero values are ignored.
type SiteFilter struct {
	Region string
	Status SiteStatus
	Tag    string
	Query  string // Substring match on name, slug, and description.
	Limit  int
	Offset int
}

// SiteRepository defines the interface for managing sites.
type SiteRepository interface {
	CreateSite(site *Site) error
	GetSite(id uuid.UUID) (*Site, error)
	GetSiteBySlug(slug string) (*Site, error)
	ListSites(filter SiteFilter) ([]*Site, error)
	UpdateSite(site *Site) error
	DeleteSite(id uuid.UUID) error
}
