package bulkimport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox/db"
	"github.com/sashashura/netbox/domain"
)

func setupImporter(t *testing.T) (*Importer, domain.Repository) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "import-test.db")
	conn, err := db.New(path)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	repo := db.NewRepository(conn)
	t.Cleanup(func() {
		repo.Close()
		os.Remove(path)
	})

	return NewImporter(repo, zerolog.Nop()), repo
}

func TestImportCSV(t *testing.T) {
	t.Run("should import sites with timestamps set", func(t *testing.T) {
		imp, repo := setupImporter(t)

		input := strings.Join([]string{
			"name,slug,status,region",
			"Ashburn,ashburn,active,us-east",
			"Frankfurt,frankfurt,planned,eu-central",
		}, "\n")

		result, err := imp.ImportCSV("sites", strings.NewReader(input))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 2 || len(result.Errors) != 0 {
			t.Fatalf("\nwanted:\n2 created\ngot:\n%+v", result)
		}

		site, err := repo.GetSiteBySlug("frankfurt")
		if err != nil {
			t.Fatalf("\nwanted:\nfrankfurt imported\ngot:\n%v", err)
		}
		if site.Status != domain.SiteStatusPlanned || site.Region != "eu-central" {
			t.Fatalf("\nwanted:\nplanned / eu-central\ngot:\n%s / %s", site.Status, site.Region)
		}
		if site.Created.IsZero() || site.LastUpdated.IsZero() {
			t.Fatalf("\nwanted:\ntimestamps set\ngot:\n%v / %v", site.Created, site.LastUpdated)
		}
	})

	t.Run("should write nothing when a row fails validation", func(t *testing.T) {
		imp, repo := setupImporter(t)

		input := strings.Join([]string{
			"name,slug,status,region",
			"Ashburn,ashburn,active,us-east",
			"Bad Slug,NOT A SLUG,active,us-east",
			"Frankfurt,frankfurt,planned,eu-central",
		}, "\n")

		result, err := imp.ImportCSV("sites", strings.NewReader(input))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 0 {
			t.Fatalf("\nwanted:\nnothing created\ngot:\n%d", result.Created)
		}
		if len(result.Errors) != 1 || result.Errors[0].Line != 3 {
			t.Fatalf("\nwanted:\none error on line 3\ngot:\n%v", result.Errors)
		}

		// the valid rows around the bad one must not land either
		if _, err := repo.GetSiteBySlug("ashburn"); err == nil {
			t.Fatalf("\nwanted:\nashburn absent\ngot:\nstored")
		}
		if _, err := repo.GetSiteBySlug("frankfurt"); err == nil {
			t.Fatalf("\nwanted:\nfrankfurt absent\ngot:\nstored")
		}
	})

	t.Run("should resolve rack sites by slug", func(t *testing.T) {
		imp, repo := setupImporter(t)

		if _, err := imp.ImportCSV("sites", strings.NewReader("name,slug\nAshburn,ashburn")); err != nil {
			t.Fatalf("seeding site: %v", err)
		}

		result, err := imp.ImportCSV("racks",
			strings.NewReader("site,name,u_height,width\nashburn,R101,42,19"))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 1 || len(result.Errors) != 0 {
			t.Fatalf("\nwanted:\n1 created\ngot:\n%+v", result)
		}

		site, _ := repo.GetSiteBySlug("ashburn")
		racks, err := repo.ListRacks(domain.RackFilter{SiteID: site.ID})
		if err != nil {
			t.Fatalf("listing racks: %v", err)
		}
		if len(racks) != 1 || racks[0].Name != "R101" {
			t.Fatalf("\nwanted:\nR101\ngot:\n%v", racks)
		}
	})

	t.Run("should reject the batch when a rack site is unknown", func(t *testing.T) {
		imp, repo := setupImporter(t)

		if _, err := imp.ImportCSV("sites", strings.NewReader("name,slug\nAshburn,ashburn")); err != nil {
			t.Fatalf("seeding site: %v", err)
		}

		input := strings.Join([]string{
			"site,name,u_height,width",
			"ashburn,R101,42,19",
			"nowhere,R102,42,19",
		}, "\n")

		result, err := imp.ImportCSV("racks", strings.NewReader(input))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 0 || len(result.Errors) != 1 {
			t.Fatalf("\nwanted:\nnothing created, 1 error\ngot:\n%+v", result)
		}

		site, _ := repo.GetSiteBySlug("ashburn")
		racks, err := repo.ListRacks(domain.RackFilter{SiteID: site.ID})
		if err != nil {
			t.Fatalf("listing racks: %v", err)
		}
		if len(racks) != 0 {
			t.Fatalf("\nwanted:\nno racks\ngot:\n%v", racks)
		}
	})

	t.Run("should import racked devices with position and face", func(t *testing.T) {
		imp, repo := setupImporter(t)

		if _, err := imp.ImportCSV("sites", strings.NewReader("name,slug\nAshburn,ashburn")); err != nil {
			t.Fatalf("seeding site: %v", err)
		}
		if _, err := imp.ImportCSV("racks", strings.NewReader("site,name\nashburn,R101")); err != nil {
			t.Fatalf("seeding rack: %v", err)
		}
		yamlDef := "manufacturer: Generic\nmodel: Server\nslug: generic-server\nu_height: 2\n"
		if _, err := imp.ImportDeviceType(strings.NewReader(yamlDef)); err != nil {
			t.Fatalf("seeding device type: %v", err)
		}

		input := strings.Join([]string{
			"site,rack,name,device_type,role,position,face",
			"ashburn,R101,srv-01,generic-server,server,10,front",
		}, "\n")

		result, err := imp.ImportCSV("devices", strings.NewReader(input))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 1 || len(result.Errors) != 0 {
			t.Fatalf("\nwanted:\n1 created\ngot:\n%d created, %v", result.Created, result.Errors)
		}

		devices, err := repo.ListDevices(domain.DeviceFilter{Name: "srv-01"})
		if err != nil || len(devices) != 1 {
			t.Fatalf("\nwanted:\nsrv-01\ngot:\n%v / %v", devices, err)
		}
		device := devices[0]
		if device.Position == nil || *device.Position != 10 || device.Face != domain.FaceFront {
			t.Fatalf("\nwanted:\nposition 10 front\ngot:\n%v %s", device.Position, device.Face)
		}
	})

	t.Run("should import prefixes and addresses", func(t *testing.T) {
		imp, repo := setupImporter(t)

		prefixes := "prefix,vrf,status,is_pool\n10.0.0.0/16,,container,false\n10.0.1.0/24,,active,true\n"
		result, err := imp.ImportCSV("prefixes", strings.NewReader(prefixes))
		if err != nil || result.Created != 2 {
			t.Fatalf("\nwanted:\n2 prefixes\ngot:\n%v / %v", result, err)
		}

		ips := "address,dns_name\n10.0.1.5/24,srv-01.example.com\nnot-an-address,broken\n"
		result, err = imp.ImportCSV("ip-addresses", strings.NewReader(ips))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 0 || len(result.Errors) != 1 {
			t.Fatalf("\nwanted:\nnothing created, 1 error\ngot:\n%+v", result)
		}

		addrs, err := repo.ListIPAddresses(domain.IPAddressFilter{Query: "srv-01"})
		if err != nil || len(addrs) != 0 {
			t.Fatalf("\nwanted:\nno addresses\ngot:\n%v / %v", addrs, err)
		}
	})

	t.Run("should import vlans and reject bad vids", func(t *testing.T) {
		imp, _ := setupImporter(t)

		input := "vid,name,group\n100,user-access,campus\n9999,too-big,campus\n"
		result, err := imp.ImportCSV("vlans", strings.NewReader(input))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if result.Created != 0 || len(result.Errors) != 1 {
			t.Fatalf("\nwanted:\nnothing created, 1 error\ngot:\n%+v", result)
		}
	})

	t.Run("should report each created object", func(t *testing.T) {
		imp, _ := setupImporter(t)

		var seen []domain.ObjectKind
		imp.OnCreate = func(kind domain.ObjectKind, id uuid.UUID, object any) {
			seen = append(seen, kind)
		}

		input := "name,slug\nAshburn,ashburn\nFrankfurt,frankfurt\n"
		if _, err := imp.ImportCSV("sites", strings.NewReader(input)); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(seen) != 2 || seen[0] != domain.KindSite {
			t.Fatalf("\nwanted:\n2 site creates observed\ngot:\n%v", seen)
		}

		seen = nil
		bad := "name,slug\nBad,NOT A SLUG\nFrankfurt,frankfurt-2\n"
		if _, err := imp.ImportCSV("sites", strings.NewReader(bad)); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(seen) != 0 {
			t.Fatalf("\nwanted:\nnothing observed for a rejected batch\ngot:\n%v", seen)
		}
	})

	t.Run("should refuse an unknown kind", func(t *testing.T) {
		imp, _ := setupImporter(t)

		if _, err := imp.ImportCSV("gadgets", strings.NewReader("a,b\n1,2")); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestImportDeviceType(t *testing.T) {
	t.Run("should import a definition and round up fractional heights", func(t *testing.T) {
		imp, repo := setupImporter(t)

		def := strings.Join([]string{
			"manufacturer: Juniper",
			"model: EX4300-48T",
			"slug: juniper-ex4300-48t",
			"u_height: 1.5",
			"is_full_depth: true",
			"interfaces:",
			"  - name: ge-0/0/0",
			"    type: 1000base-t",
		}, "\n")

		created, err := imp.ImportDeviceType(strings.NewReader(def))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if created.UHeight != 2 || !created.IsFullDepth {
			t.Fatalf("\nwanted:\n2U full depth\ngot:\n%dU %t", created.UHeight, created.IsFullDepth)
		}

		stored, err := repo.GetDeviceTypeBySlug("juniper-ex4300-48t")
		if err != nil {
			t.Fatalf("\nwanted:\nstored type\ngot:\n%v", err)
		}
		if stored.Manufacturer != "Juniper" || stored.Model != "EX4300-48T" {
			t.Fatalf("\nwanted:\nJuniper EX4300-48T\ngot:\n%s %s", stored.Manufacturer, stored.Model)
		}
	})

	t.Run("should reject a definition without a model", func(t *testing.T) {
		imp, _ := setupImporter(t)

		if _, err := imp.ImportDeviceType(strings.NewReader("manufacturer: Generic\nslug: x\n")); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}
