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

var _ domain.IPAddressRepository = (*Repository)(nil)

// dbIPAddress represents an IP address as stored in the database.
type dbIPAddress struct {
	ID          uuid.UUID  `db:"id"`
	Address     string     `db:"address"`
	VRF         string     `db:"vrf"`
	Family      int        `db:"family"`
	IPKey       string     `db:"ip_key"`
	Status      string     `db:"status"`
	Role        string     `db:"role"`
	InterfaceID *uuid.UUID `db:"interface_id"`
	DNSName     string     `db:"dns_name"`
	Description string     `db:"description"`
	Tags        StringList `db:"tags"`
	Created     time.Time  `db:"created"`
	LastUpdated time.Time  `db:"last_updated"`
}

func fromDomainIPAddress(ip *domain.IPAddress) *dbIPAddress {
	family := 6
	if ip.Address.Addr().Is4() {
		family = 4
	}
	return &dbIPAddress{
		ID:          ip.ID,
		Address:     ip.Address.String(),
		VRF:         ip.VRF,
		Family:      family,
		IPKey:       ipKey(ip.Address.Addr()),
		Status:      string(ip.Status),
		Role:        string(ip.Role),
		InterfaceID: ip.InterfaceID,
		DNSName:     ip.DNSName,
		Description: ip.Description,
		Tags:        StringList(ip.Tags),
		Created:     ip.Created,
		LastUpdated: ip.LastUpdated,
	}
}

func toDomainIPAddress(row *dbIPAddress) (*domain.IPAddress, error) {
	address, err := netip.ParsePrefix(row.Address)
	if err != nil {
		return nil, fmt.Errorf("parsing stored address %q: %w", row.Address, err)
	}
	return &domain.IPAddress{
		ID:          row.ID,
		Address:     address,
		VRF:         row.VRF,
		Status:      domain.IPStatus(row.Status),
		Role:        domain.IPRole(row.Role),
		InterfaceID: row.InterfaceID,
		DNSName:     row.DNSName,
		Description: row.Description,
		Tags:        []string(row.Tags),
		Created:     row.Created,
		LastUpdated: row.LastUpdated,
	}, nil
}

func toDomainIPAddresses(rows []*dbIPAddress) ([]*domain.IPAddress, error) {
	ips := make([]*domain.IPAddress, len(rows))
	for i, row := range rows {
		ip, err := toDomainIPAddress(row)
		if err != nil {
			return nil, err
		}
		ips[i] = ip
	}
	return ips, nil
}

// CreateIPAddress inserts a new IP address.
func (repo *Repository) CreateIPAddress(ip *domain.IPAddress) error {
	row := fromDomainIPAddress(ip)
	query := `INSERT INTO ip_address(id, address, vrf, family, ip_key, status, role, interface_id,
				dns_name, description, tags, created, last_updated)
			  VALUES(:id, :address, :vrf, :family, :ip_key, :status, :role, :interface_id,
				:dns_name, :description, :tags, :created, :last_updated)`
	_, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("address %s in vrf %q: %w", ip.Address, ip.VRF, ErrDuplicate)
		}
		return fmt.Errorf("inserting address %s : %w", ip.Address, err)
	}
	return nil
}

// GetIPAddress retrieves an IP address by ID.
func (repo *Repository) GetIPAddress(id uuid.UUID) (*domain.IPAddress, error) {
	var row dbIPAddress
	err := repo.dbConn.Get(&row, `SELECT * FROM ip_address WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("address %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting address %s : %w", id, err)
	}
	return toDomainIPAddress(&row)
}

// ListIPAddresses retrieves addresses matching the filter, in address order.
func (repo *Repository) ListIPAddresses(filter domain.IPAddressFilter) ([]*domain.IPAddress, error) {
	query := `SELECT * FROM ip_address WHERE 1=1`
	var args []any

	if filter.VRFSet || filter.VRF != "" {
		query += ` AND vrf = ?`
		args = append(args, filter.VRF)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Role != "" {
		query += ` AND role = ?`
		args = append(args, string(filter.Role))
	}
	if filter.InterfaceID != uuid.Nil {
		query += ` AND interface_id = ?`
		args = append(args, filter.InterfaceID)
	}
	if filter.DeviceID != uuid.Nil {
		query += ` AND interface_id IN (SELECT id FROM interface WHERE device_id = ?)`
		args = append(args, filter.DeviceID)
	}
	if filter.Parent != "" {
		parent, err := netip.ParsePrefix(filter.Parent)
		if err != nil {
			return nil, fmt.Errorf("parsing parent filter %q: %w", filter.Parent, err)
		}
		start, end := rangeKeys(parent)
		query += ` AND ip_key BETWEEN ? AND ?`
		args = append(args, start, end)
	}
	if filter.Family != 0 {
		query += ` AND family = ?`
		args = append(args, filter.Family)
	}
	if filter.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(ip_address.tags) WHERE json_each.value = ?)`
		args = append(args, filter.Tag)
	}
	if filter.Query != "" {
		query += ` AND (address LIKE ? OR dns_name LIKE ? OR description LIKE ?)`
		like := "%" + filter.Query + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY ip_key ASC`
	query, args = applyPaging(query, args, filter.Limit, filter.Offset)

	var rows []*dbIPAddress
	if err := repo.dbConn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing addresses : %w", err)
	}
	return toDomainIPAddresses(rows)
}

// ListIPsInPrefix returns the addresses in the prefix's VRF that fall inside
// the prefix, in address order. No paging: allocation needs the full set.
func (repo *Repository) ListIPsInPrefix(prefix *domain.Prefix) ([]*domain.IPAddress, error) {
	start, end := rangeKeys(prefix.Prefix)
	query := `SELECT * FROM ip_address
			  WHERE vrf = ? AND ip_key BETWEEN ? AND ?
			  ORDER BY ip_key ASC`

	var rows []*dbIPAddress
	if err := repo.dbConn.Select(&rows, query, prefix.VRF, start, end); err != nil {
		return nil, fmt.Errorf("listing addresses in %s : %w", prefix.Prefix, err)
	}
	return toDomainIPAddresses(rows)
}

// UpdateIPAddress updates an existing IP address.
func (repo *Repository) UpdateIPAddress(ip *domain.IPAddress) error {
	row := fromDomainIPAddress(ip)
	query := `UPDATE ip_address SET
				address = :address,
				vrf = :vrf,
				family = :family,
				ip_key = :ip_key,
				status = :status,
				role = :role,
				interface_id = :interface_id,
				dns_name = :dns_name,
				description = :description,
				tags = :tags,
				last_updated = :last_updated
			  WHERE id = :id`
	result, err := repo.dbConn.NamedExec(query, row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("address %s in vrf %q: %w", ip.Address, ip.VRF, ErrDuplicate)
		}
		return fmt.Errorf("updating address %s : %w", ip.ID, err)
	}
	return checkAffected(result, ip.ID)
}

// DeleteIPAddress removes an IP address and clears any device primary-IP
// references to it.
func (repo *Repository) DeleteIPAddress(id uuid.UUID) error {
	_, err := repo.dbConn.Exec(
		`UPDATE device SET primary_ip4_id = NULL WHERE primary_ip4_id = ?`, id)
	if err != nil {
		return fmt.Errorf("clearing primary ip4 references to %s : %w", id, err)
	}
	_, err = repo.dbConn.Exec(
		`UPDATE device SET primary_ip6_id = NULL WHERE primary_ip6_id = ?`, id)
	if err != nil {
		return fmt.Errorf("clearing primary ip6 references to %s : %w", id, err)
	}
	result, err := repo.dbConn.Exec(`DELETE FROM ip_address WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting address %s : %w", id, err)
	}
	return checkAffected(result, id)
}
