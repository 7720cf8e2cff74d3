package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.SiteRepository = (*Repository)(nil)

// ErrNotFound is returned when a lookup by ID or slug matches no row.
var ErrNotFound = errors.New("object not found")

// ErrReferenced is returned when a delete fails because other objects still
// reference the row.
var ErrReferenced = errors.New("object is still referenced")

// isFKViolation reports whether the error is a SQLite foreign key constraint
// failure. modernc.org/sqlite surfaces these as plain errors carrying the
// constraint message.
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// isUniqueViolation reports whether the error is a SQLite unique constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ErrDuplicate is returned when an insert or update collides with a unique
// constraint.
var ErrDuplicate = errors.New("object already exists")

// dbSite represents a site as stored in the database.
type dbSite struct {
	ID           uuid.UUID  `db:"id"`
	Name         string     `db:"name"`
	Slug         string     `db:"slug"`
	Status       string     `db:"status"`
	Region       string     `db:"region"`
	Facility     string     `db:"facility"`
	Description  string     `db:"description"`
	Tags         StringList `db:"tags"`
	CustomFields Fields     `db:"custom_fields"`
	Created      time.Time  `db:"created"`
	LastUpdated  time.Time  `db:"last_updated"`
}

func fromDomainSite(site *domain.Site) *dbSite {
	return &dbSite{
		ID:           site.ID,
		Name:         site.Name,
		Slug:         site.Slug,
		Status:       string(site.Status),
		Region:       site.Region,
		Facility:     site.Facility,
		Description:  site.Description,
		Tags:         StringList(site.Tags),
		CustomFields: Fields(site.CustomFields),
		Created:      site.Created,
		LastUpdated:  site.LastUpdated,
	}
}

func toDomainSite(row *dbSite) *domain.Site {
	return &domain.Site{
		ID:           row.ID,
		Name:         row.Name,
		Slug:         row.Slug,
		Status:       domain.SiteStatus(row.Status),
		Region:       row.Region,
		Facility:     row.Facility,
		Description:  row.Description,
		Tags:         []string(row.Tags),
		CustomFields: map[string]any(row.CustomFields),
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}
}

// CreateSite inserts a new site.
func (repo *Repository) CreateSite(site *domain.Site) error {
	row := fromDomainSite(site)
	query := `INSERT INTO site(id, name, slug, status, region, facility, description, tags, custom_fields, created, last_updated)
			  VALUES(:id, :name, :slug, :status, :region, :facility, :description, :tags, :custom_fields, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("site %s: %w", site.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting site %s : %w", site.Name, err)
	}
	return nil
}

// GetSite retrieves a site by ID.
func (repo *Repository) GetSite(id uuid.UUID) (*domain.Site, error) {
	var row dbSite
	query := `SELECT * FROM site WHERE id = ?`

	err := repo.dbConn.Get(&row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("site %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting site %s : %w", id, err)
	}
	return toDomainSite(&row), nil
}

// GetSiteBySlug retrieves a site by its slug.
func (repo *Repository) GetSiteBySlug(slug string) (*domain.Site, error) {
	var row dbSite
	query := `SELECT * FROM site WHERE slug = ?`

	err := repo.dbConn.Get(&row, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("site %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("getting site %q : %w", slug, err)
	}
	return toDomainSite(&row), nil
}

// ListSites retrieves sites matching the filter, ordered by name.
func (repo *Repository) ListSites(filter domain.SiteFilter) ([]*domain.Site, error) {
	query := `SELECT * FROM site WHERE 1=1`
	var args []any

	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(site.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (name LIKE ? OR slug LIKE ? OR description LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY name ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbSite
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing sites : %w", err)
	}

	sites := make([]*domain.Site, len(rows))
	for i, row := range rows {
		sites[i] = toDomainSite(row)
	}
	return sites, nil
}

// UpdateSite updates an existing site.
func (repo *Repository) UpdateSite(site *domain.Site) error {
	row := fromDomainSite(site)
	query := `UPDATE site SET
				name = :name,
				slug = :slug,
				status = :status,
				region = :region,
				facility = :facility,
				description = :description,
				tags = :tags,
				custom_fields = :custom_fields,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("site %s: %w", site.Name, ErrDuplicate)
		}
		return fmt.Errorf("updating site %s : %w", site.ID, err)
	}
	return checkAffected(result, site.ID)
}

// DeleteSite removes a site. It fails with ErrReferenced while racks or
// devices still point at the site.
func (repo *Repository) DeleteSite(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM site WHERE id = ?`, id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("site %s: %w", id, ErrReferenced)
		}
		return fmt.Errorf("deleting site %s : %w", id, err)
	}
	return checkAffected(result, id)
}

// applyPaging appends LIMIT/OFFSET clauses. A zero limit applies the default
// page size and positive limits are capped; domain.NoLimit skips paging so
// full-data-set reads are not truncated.
func applyPaging(query string, args []any, limit, offset int) (string, []any) {
	const (
		defaultLimit = 50
		maxLimit     = 1000
	)
	if limit < 0 {
		return query, args
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if offset > 0 {
		query += ` OFFSET ?`
		args = append(args, offset)
	}
	return query, args
}

// checkAffected converts a zero-row update or delete into ErrNotFound.
func checkAffected(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for %s : %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	return nil
}
