package db

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sashashura/netbox/domain"
)

func TestRackRepo_CreateRack(t *testing.T) {
	t.Run("should insert a rack and read it back", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")
		want := testRack(t, repo, site.ID, "R101")

		got, err := repo.GetRack(want.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.Name != "R101" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "R101", got.Name)
		}
		if got.UHeight != 42 {
			t.Fatalf("\nwanted:\n42\ngot:\n%d", got.UHeight)
		}
		if got.SiteID != site.ID {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", site.ID, got.SiteID)
		}
	})

	t.Run("should reject a duplicate name within the same site", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")
		testRack(t, repo, site.ID, "R101")

		dup := &domain.Rack{
			ID:      newID(t),
			SiteID:  site.ID,
			Name:    "R101",
			Status:  domain.RackStatusActive,
			UHeight: 48,
			Width:   19,
		}
		err := repo.CreateRack(dup)
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("\nwanted:\nErrDuplicate\ngot:\n%v", err)
		}
	})

	t.Run("should allow the same name in a different site", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		siteA := testSite(t, repo, "fra-01")
		siteB := testSite(t, repo, "ams-02")
		testRack(t, repo, siteA.ID, "R101")
		testRack(t, repo, siteB.ID, "R101")

		got, err := repo.ListRacks(domain.RackFilter{})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
	})
}

func TestRackRepo_ListRacks(t *testing.T) {
	t.Run("should filter by site", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		siteA := testSite(t, repo, "fra-01")
		siteB := testSite(t, repo, "ams-02")
		testRack(t, repo, siteA.ID, "R101")
		testRack(t, repo, siteA.ID, "R102")
		testRack(t, repo, siteB.ID, "R201")

		got, err := repo.ListRacks(domain.RackFilter{SiteID: siteA.ID})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
	})
}

func TestRackRepo_DeleteRack(t *testing.T) {
	t.Run("should refuse to delete a rack that still holds devices", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")
		rack := testRack(t, repo, site.ID, "R101")
		dt := testDeviceType(t, repo, "acme-1u", 1, false)

		device := testDevice(t, repo, site.ID, dt.ID, "srv-01")
		device.RackID = &rack.ID
		position := 10
		device.Position = &position
		device.Face = domain.FaceFront
		if err := repo.UpdateDevice(device); err != nil {
			t.Fatalf("racking device: %v", err)
		}

		err := repo.DeleteRack(rack.ID)
		if !errors.Is(err, ErrReferenced) {
			t.Fatalf("\nwanted:\nErrReferenced\ngot:\n%v", err)
		}
	})
}

func TestRackRepo_Reservations(t *testing.T) {
	t.Run("should create and list reservations with their units", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")
		rack := testRack(t, repo, site.ID, "R101")

		res := &domain.RackReservation{
			ID:          newID(t),
			RackID:      rack.ID,
			Units:       []int{40, 41, 42},
			Description: "expansion blades",
			CreatedBy:   "ops",
			Created:     testTime(),
		}
		if err := repo.CreateRackReservation(res); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.ListRackReservations(rack.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}
		if !reflect.DeepEqual(got[0].Units, []int{40, 41, 42}) {
			t.Fatalf("\nwanted:\n[40 41 42]\ngot:\n%v", got[0].Units)
		}
	})

	t.Run("should remove reservations when the rack is deleted", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")
		rack := testRack(t, repo, site.ID, "R101")

		res := &domain.RackReservation{
			ID:      newID(t),
			RackID:  rack.ID,
			Units:   []int{1},
			Created: testTime(),
		}
		if err := repo.CreateRackReservation(res); err != nil {
			t.Fatalf("creating reservation: %v", err)
		}

		if err := repo.DeleteRack(rack.ID); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.ListRackReservations(rack.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", len(got))
		}
	})
}
