package db

import (
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewRepository(dbConn)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func newID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}
	return id
}

func testTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func testSite(t *testing.T, repo *Repository, slug string) *domain.Site {
	t.Helper()
	now := testTime()
	site := &domain.Site{
		ID:          newID(t),
		Name:        "Site " + slug,
		Slug:        slug,
		Status:      domain.SiteStatusActive,
		Region:      "eu-central",
		Created:     now,
		LastUpdated: now,
	}
	if err := repo.CreateSite(site); err != nil {
		t.Fatalf("inserting site: %v", err)
	}
	return site
}

func testRack(t *testing.T, repo *Repository, siteID uuid.UUID, name string) *domain.Rack {
	t.Helper()
	now := testTime()
	rack := &domain.Rack{
		ID:          newID(t),
		SiteID:      siteID,
		Name:        name,
		Status:      domain.RackStatusActive,
		UHeight:     42,
		Width:       19,
		Created:     now,
		LastUpdated: now,
	}
	if err := repo.CreateRack(rack); err != nil {
		t.Fatalf("inserting rack: %v", err)
	}
	return rack
}

func testDeviceType(t *testing.T, repo *Repository, slug string, uHeight int, fullDepth bool) *domain.DeviceType {
	t.Helper()
	now := testTime()
	dt := &domain.DeviceType{
		ID:           newID(t),
		Manufacturer: "Acme",
		Model:        "Model " + slug,
		Slug:         slug,
		UHeight:      uHeight,
		IsFullDepth:  fullDepth,
		Created:      now,
		LastUpdated:  now,
	}
	if err := repo.CreateDeviceType(dt); err != nil {
		t.Fatalf("inserting device type: %v", err)
	}
	return dt
}

func testDevice(t *testing.T, repo *Repository, siteID uuid.UUID, dtID uuid.UUID, name string) *domain.Device {
	t.Helper()
	now := testTime()
	device := &domain.Device{
		ID:           newID(t),
		SiteID:       siteID,
		Name:         name,
		DeviceTypeID: dtID,
		Role:         "server",
		Status:       domain.DeviceStatusActive,
		Created:      now,
		LastUpdated:  now,
	}
	if err := repo.CreateDevice(device); err != nil {
		t.Fatalf("inserting device: %v", err)
	}
	return device
}

func testInterface(t *testing.T, repo *Repository, deviceID uuid.UUID, name string, kind domain.InterfaceKind) *domain.Interface {
	t.Helper()
	iface := &domain.Interface{
		ID:       newID(t),
		DeviceID: deviceID,
		Name:     name,
		Kind:     kind,
		Enabled:  true,
	}
	if err := repo.CreateInterface(iface); err != nil {
		t.Fatalf("inserting interface: %v", err)
	}
	return iface
}

func testPrefix(t *testing.T, repo *Repository, cidr string) *domain.Prefix {
	t.Helper()
	now := testTime()
	prefix := &domain.Prefix{
		ID:          newID(t),
		Prefix:      netip.MustParsePrefix(cidr),
		Status:      domain.PrefixStatusActive,
		Created:     now,
		LastUpdated: now,
	}
	if err := repo.CreatePrefix(prefix); err != nil {
		t.Fatalf("inserting prefix %s: %v", cidr, err)
	}
	return prefix
}

func testIPAddress(t *testing.T, repo *Repository, addr string) *domain.IPAddress {
	t.Helper()
	now := testTime()
	ip := &domain.IPAddress{
		ID:          newID(t),
		Address:     netip.MustParsePrefix(addr),
		Status:      domain.IPStatusActive,
		Created:     now,
		LastUpdated: now,
	}
	if err := repo.CreateIPAddress(ip); err != nil {
		t.Fatalf("inserting address %s: %v", addr, err)
	}
	return ip
}
