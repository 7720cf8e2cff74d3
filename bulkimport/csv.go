package bulkimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox/domain"
)

// ErrUnknownKind is returned when the import kind does not name a supported
// object type.
var ErrUnknownKind = errors.New("unknown import kind")

// RowError describes why a single CSV row failed to import. Line numbers
// count from 1 and include the header row.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result summarizes an import run.
type Result struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

// pendingRow is a parsed and validated row waiting for the insert phase.
type pendingRow struct {
	line   int
	kind   domain.ObjectKind
	id     uuid.UUID
	object any
	insert func() error
}

// Importer loads bulk data into the repository.
type Importer struct {
	repo   domain.Repository
	logger zerolog.Logger

	// OnCreate, when set, observes every inserted object. The app wires it
	// to the changelog so imports fan out like API writes.
	OnCreate func(kind domain.ObjectKind, id uuid.UUID, object any)
}

// NewImporter returns an importer writing through the given repository.
func NewImporter(repo domain.Repository, logger zerolog.Logger) *Importer {
	return &Importer{repo: repo, logger: logger}
}

// ImportCSV parses a CSV stream and creates one object per row. The first
// row must be a header naming the columns; column order does not matter.
// Rows are validated up front and nothing is written unless every row
// passes; a constraint failure during the insert phase aborts the
// remainder. Supported kinds: sites, racks, devices, prefixes,
// ip-addresses, vlans.
func (imp *Importer) ImportCSV(kind string, r io.Reader) (*Result, error) {
	var prepare func(row map[string]string) (*pendingRow, error)

	switch kind {
	case "sites":
		prepare = imp.prepareSite
	case "racks":
		prepare = imp.prepareRack
	case "devices":
		prepare = imp.prepareDevice
	case "prefixes":
		prepare = imp.preparePrefix
	case "ip-addresses":
		prepare = imp.prepareIPAddress
	case "vlans":
		prepare = imp.prepareVLAN
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header : %w", err)
	}
	for i, name := range header {
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}

	result := &Result{}
	var pending []*pendingRow
	line := 1
	for {
		line++
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		row := make(map[string]string, len(header))
		for i, value := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(value)
			}
		}

		p, err := prepare(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		p.line = line
		pending = append(pending, p)
	}

	if len(result.Errors) > 0 {
		imp.logger.Info().
			Str("kind", kind).
			Int("failed", len(result.Errors)).
			Msg("csv import rejected, no rows written")
		return result, nil
	}

	for _, p := range pending {
		if err := p.insert(); err != nil {
			result.Errors = append(result.Errors, RowError{Line: p.line, Message: err.Error()})
			break
		}
		result.Created++
		if imp.OnCreate != nil {
			imp.OnCreate(p.kind, p.id, p.object)
		}
	}

	imp.logger.Info().
		Str("kind", kind).
		Int("created", result.Created).
		Int("failed", len(result.Errors)).
		Msg("csv import finished")
	return result, nil
}

func (imp *Importer) prepareSite(row map[string]string) (*pendingRow, error) {
	now := time.Now().UTC()
	site := &domain.Site{
		ID:          newID(),
		Name:        row["name"],
		Slug:        row["slug"],
		Status:      domain.SiteStatus(defaulted(row["status"], string(domain.SiteStatusActive))),
		Region:      row["region"],
		Facility:    row["facility"],
		Description: row["description"],
		Created:     now,
		LastUpdated: now,
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &pendingRow{
		kind:   domain.KindSite,
		id:     site.ID,
		object: site,
		insert: func() error { return imp.repo.CreateSite(site) },
	}, nil
}

func (imp *Importer) prepareRack(row map[string]string) (*pendingRow, error) {
	site, err := imp.repo.GetSiteBySlug(row["site"])
	if err != nil {
		return nil, fmt.Errorf("resolving site %q : %w", row["site"], err)
	}
	uHeight, err := intField(row, "u_height", 42)
	if err != nil {
		return nil, err
	}
	width, err := intField(row, "width", 19)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rack := &domain.Rack{
		ID:          newID(),
		SiteID:      site.ID,
		Name:        row["name"],
		Status:      domain.RackStatus(defaulted(row["status"], string(domain.RackStatusActive))),
		Role:        row["role"],
		UHeight:     uHeight,
		Width:       width,
		Description: row["description"],
		Created:     now,
		LastUpdated: now,
	}
	if err := rack.Validate(); err != nil {
		return nil, err
	}
	return &pendingRow{
		kind:   domain.KindRack,
		id:     rack.ID,
		object: rack,
		insert: func() error { return imp.repo.CreateRack(rack) },
	}, nil
}

func (imp *Importer) prepareDevice(row map[string]string) (*pendingRow, error) {
	site, err := imp.repo.GetSiteBySlug(row["site"])
	if err != nil {
		return nil, fmt.Errorf("resolving site %q : %w", row["site"], err)
	}
	deviceType, err := imp.repo.GetDeviceTypeBySlug(row["device_type"])
	if err != nil {
		return nil, fmt.Errorf("resolving device type %q : %w", row["device_type"], err)
	}

	now := time.Now().UTC()
	device := &domain.Device{
		ID:           newID(),
		SiteID:       site.ID,
		Name:         row["name"],
		DeviceTypeID: deviceType.ID,
		Role:         row["role"],
		Status:       domain.DeviceStatus(defaulted(row["status"], string(domain.DeviceStatusActive))),
		Serial:       row["serial"],
		Created:      now,
		LastUpdated:  now,
	}

	if rackName := row["rack"]; rackName != "" {
		racks, err := imp.repo.ListRacks(domain.RackFilter{
			SiteID: site.ID,
			Query:  rackName,
			Limit:  domain.NoLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("resolving rack %q : %w", rackName, err)
		}
		var rack *domain.Rack
		for _, candidate := range racks {
			if candidate.Name == rackName {
				rack = candidate
				break
			}
		}
		if rack == nil {
			return nil, fmt.Errorf("rack %q not found at site %q", rackName, row["site"])
		}
		device.RackID = &rack.ID

		if row["position"] != "" {
			position, err := intField(row, "position", 0)
			if err != nil {
				return nil, err
			}
			device.Position = &position
			device.Face = domain.DeviceFace(defaulted(row["face"], string(domain.FaceFront)))
		}
	}

	if err := device.Validate(); err != nil {
		return nil, err
	}
	return &pendingRow{
		kind:   domain.KindDevice,
		id:     device.ID,
		object: device,
		insert: func() error { return imp.repo.CreateDevice(device) },
	}, nil
}

func (imp *Importer) preparePrefix(row map[string]string) (*pendingRow, error) {
	parsed, err := netip.ParsePrefix(row["prefix"])
	if err != nil {
		return nil, fmt.Errorf("parsing prefix %q : %w", row["prefix"], err)
	}
	isPool, err := boolField(row, "is_pool")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prefix := &domain.Prefix{
		ID:          newID(),
		Prefix:      parsed,
		VRF:         row["vrf"],
		Status:      domain.PrefixStatus(defaulted(row["status"], string(domain.PrefixStatusActive))),
		Role:        row["role"],
		IsPool:      isPool,
		Description: row["description"],
		Created:     now,
		LastUpdated: now,
	}
	if err := prefix.Validate(); err != nil {
		return nil, err
	}
	return &pendingRow{
		kind:   domain.KindPrefix,
		id:     prefix.ID,
		object: prefix,
		insert: func() error { return imp.repo.CreatePrefix(prefix) },
	}, nil
}

func (imp *Importer) prepareIPAddress(row map[string]string) (*pendingRow, error) {
	parsed, err := netip.ParsePrefix(row["address"])
	if err != nil {
		return nil, fmt.Errorf("parsing address %q : %w", row["address"], err)
	}

	now := time.Now().UTC()
	ip := &domain.IPAddress{
		ID:          newID(),
		Address:     parsed,
		VRF:         row["vrf"],
		Status:      domain.IPStatus(defaulted(row["status"], string(domain.IPStatusActive))),
		Role:        domain.IPRole(row["role"]),
		DNSName:     row["dns_name"],
		Description: row["description"],
		Created:     now,
		LastUpdated: now,
	}
	if err := ip.Validate(); err != nil {
		return nil, err
	}
	return &pendingRow{
		kind:   domain.KindIPAddress,
		id:     ip.ID,
		object: ip,
		insert: func() error { return imp.repo.CreateIPAddress(ip) },
	}, nil
}

func (imp *Importer) prepareVLAN(row map[string]string) (*pendingRow, error) {
	vid, err := intField(row, "vid", 0)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	vlan := &domain.VLAN{
		ID:          newID(),
		VID:         vid,
		Name:        row["name"],
		Group:       row["group"],
		Status:      domain.VLANStatus(defaulted(row["status"], string(domain.VLANStatusActive))),
		Role:        row["role"],
		Description: row["description"],
		Created:     now,
		LastUpdated: now,
	}
	if err := vlan.Validate(); err != nil {
		return nil, err
	}
	return &pendingRow{
		kind:   domain.KindVLAN,
		id:     vlan.ID,
		object: vlan,
		insert: func() error { return imp.repo.CreateVLAN(vlan) },
	}, nil
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func defaulted(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func intField(row map[string]string, name string, fallback int) (int, error) {
	value := row[name]
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", name, value)
	}
	return n, nil
}

func boolField(row map[string]string, name string) (bool, error) {
	value := row[name]
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("column %s: %q is not a boolean", name, value)
	}
	return b, nil
}
