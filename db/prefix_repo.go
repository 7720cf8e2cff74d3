package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

var _ domain.PrefixRepository = (*Repository)(nil)

// dbPrefix represents a prefix as stored in the database. The range columns
// are derived from the prefix on every write.
type dbPrefix struct {
	ID           uuid.UUID  `db:"id"`
	Prefix       string     `db:"prefix"`
	VRF          string     `db:"vrf"`
	Family       int        `db:"family"`
	RangeStart   string     `db:"range_start"`
	RangeEnd     string     `db:"range_end"`
	SiteID       *uuid.UUID `db:"site_id"`
	VLANID       *uuid.UUID `db:"vlan_id"`
	Status       string     `db:"status"`
	Role         string     `db:"role"`
	IsPool       bool       `db:"is_pool"`
	Description  string     `db:"description"`
	Tags         StringList `db:"tags"`
	CustomFields Fields     `db:"custom_fields"`
	Created      time.Time  `db:"created"`
	LastUpdated  time.Time  `db:"last_updated"`
}

func fromDomainPrefix(prefix *domain.Prefix) *dbPrefix {
	start, end := rangeKeys(prefix.Prefix)
	family := 6
	if prefix.Prefix.Addr().Is4() {
		family = 4
	}
	return &dbPrefix{
		ID:           prefix.ID,
		Prefix:       prefix.Prefix.String(),
		VRF:          prefix.VRF,
		Family:       family,
		RangeStart:   start,
		RangeEnd:     end,
		SiteID:       prefix.SiteID,
		VLANID:       prefix.VLANID,
		Status:       string(prefix.Status),
		Role:         prefix.Role,
		IsPool:       prefix.IsPool,
		Description:  prefix.Description,
		Tags:         StringList(prefix.Tags),
		CustomFields: Fields(prefix.CustomFields),
		Created:      prefix.Created,
		LastUpdated:  prefix.LastUpdated,
	}
}

func toDomainPrefix(row *dbPrefix) (*domain.Prefix, error) {
	network, err := netip.ParsePrefix(row.Prefix)
	if err != nil {
		return nil, fmt.Errorf("parsing stored prefix %q: %w", row.Prefix, err)
	}
	return &domain.Prefix{
		ID:           row.ID,
		Prefix:       network,
		VRF:          row.VRF,
		SiteID:       row.SiteID,
		VLANID:       row.VLANID,
		Status:       domain.PrefixStatus(row.Status),
		Role:         row.Role,
		IsPool:       row.IsPool,
		Description:  row.Description,
		Tags:         []string(row.Tags),
		CustomFields: map[string]any(row.CustomFields),
		Created:      row.Created,
		LastUpdated:  row.LastUpdated,
	}, nil
}

func toDomainPrefixes(rows []*dbPrefix) ([]*domain.Prefix, error) {
	prefixes := make([]*domain.Prefix, len(rows))
	for i, row := range rows {
		prefix, err := toDomainPrefix(row)
		if err != nil {
			return nil, err
		}
		prefixes[i] = prefix
	}
	return prefixes, nil
}

// CreatePrefix inserts a new prefix.
func (repo *Repository) CreatePrefix(prefix *domain.Prefix) error {
	row := fromDomainPrefix(prefix)
	query := `INSERT INTO prefix(id, prefix, vrf, family, range_start, range_end, site_id, vlan_id,
				status, role, is_pool, description, tags, custom_fields, created, last_updated)
			  VALUES(:id, :prefix, :vrf, :family, :range_start, :range_end, :site_id, :vlan_id,
				:status, :role, :is_pool, :description, :tags, :custom_fields, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("prefix %s in vrf %q: %w", prefix.Prefix, prefix.VRF, ErrDuplicate)
		}
		return fmt.Errorf("inserting prefix %s : %w", prefix.Prefix, err)
	}
	return nil
}

// GetPrefix retrieves a prefix by ID.
func (repo *Repository) GetPrefix(id uuid.UUID) (*domain.Prefix, error) {
	var row dbPrefix
	err := repo.dbConn.Get(&row, `SELECT * FROM prefix WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prefix %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting prefix %s : %w", id, err)
	}
	return toDomainPrefix(&row)
}

// ListPrefixes retrieves prefixes matching the filter, ordered by address
// then mask length.
func (repo *Repository) ListPrefixes(filter domain.PrefixFilter) ([]*domain.Prefix, error) {
	query := `SELECT * FROM prefix WHERE 1=1`
	var args []any

	if filter.VRFSet || filter.VRF != "" {
		query += ` AND vrf = ?`
		args = append(args, filter.VRF)
	}
	if filter.SiteID != uuid.Nil {
		query += ` AND site_id = ?`
		args = append(args, filter.SiteID)
	}
	if filter.VLANID != uuid.Nil {
		query += ` AND vlan_id = ?`
		args = append(args, filter.VLANID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, filter.Role)
	}
	if filter.Family != 0 {
		query += ` AND family = ?`
		args = append(args, filter.Family)
	}
	if filter.Contains != "" {
		contained, err := parseContains(filter.Contains)
		if err != nil {
			return nil, err
		}
		start, end := rangeKeys(contained)
		query += ` AND range_start <= ? AND range_end >= ?`
		args = append(args, start, end)
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(prefix.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (prefix LIKE ? OR description LIKE ? OR role LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY range_start ASC, family ASC, length(prefix) ASC, prefix ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbPrefix
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing prefixes : %w", err)
	}
	return toDomainPrefixes(rows)
}

// parseContains accepts either a bare address or a CIDR prefix.
func parseContains(s string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parsing contains filter %q: %w", s, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// ListChildPrefixes returns the prefixes contained within the given prefix in
// the same VRF, excluding the prefix itself.
func (repo *Repository) ListChildPrefixes(prefix *domain.Prefix) ([]*domain.Prefix, error) {
	start, end := rangeKeys(prefix.Prefix)
	family := 6
	if prefix.Prefix.Addr().Is4() {
		family = 4
	}
	query := `SELECT * FROM prefix
			  WHERE vrf = ? AND family = ? AND range_start >= ? AND range_end <= ? AND id != ?
			  ORDER BY range_start ASC, length(prefix) ASC`

	var rows []*dbPrefix
	if err := repo.dbConn.Select(&rows, query, prefix.VRF, family, start, end, prefix.ID); err != nil {
		return nil, fmt.Errorf("listing children of %s : %w", prefix.Prefix, err)
	}
	return toDomainPrefixes(rows)
}

// UpdatePrefix updates an existing prefix, recomputing its range keys.
func (repo *Repository) UpdatePrefix(prefix *domain.Prefix) error {
	row := fromDomainPrefix(prefix)
	query := `UPDATE prefix SET
				prefix = :prefix,
				vrf = :vrf,
				family = :family,
				range_start = :range_start,
				range_end = :range_end,
				site_id = :site_id,
				vlan_id = :vlan_id,
				status = :status,
				role = :role,
				is_pool = :is_pool,
				description = :description,
				tags = :tags,
				custom_fields = :custom_fields,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("prefix %s in vrf %q: %w", prefix.Prefix, prefix.VRF, ErrDuplicate)
		}
		return fmt.Errorf("updating prefix %s : %w", prefix.ID, err)
	}
	return checkAffected(result, prefix.ID)
}

// DeletePrefix removes a prefix. Contained prefixes and addresses are left in
// place; they simply reattach to the next parent in the hierarchy.
func (repo *Repository) DeletePrefix(id uuid.UUID) error {
	result, err := repo.dbConn.Exec(`DELETE FROM prefix WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting prefix %s : %w", id, err)
	}
	return checkAffected(result, id)
}
