package db

import (
	"errors"
	"testing"

	"github.com/sashashura/netbox/domain"
)

func TestSiteRepo_CreateSite(t *testing.T) {
	t.Run("should insert a site and read it back by id", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := testSite(t, repo, "fra-01")

		got, err := repo.GetSite(want.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.Name != want.Name {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", want.Name, got.Name)
		}
		if got.Slug != want.Slug {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", want.Slug, got.Slug)
		}
		if got.Status != domain.SiteStatusActive {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", domain.SiteStatusActive, got.Status)
		}
	})

	t.Run("should reject a duplicate slug", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testSite(t, repo, "fra-01")

		dup := &domain.Site{
			ID:     newID(t),
			Name:   "Another Frankfurt",
			Slug:   "fra-01",
			Status: domain.SiteStatusActive,
		}
		err := repo.CreateSite(dup)
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("\nwanted:\nErrDuplicate\ngot:\n%v", err)
		}
	})
}

func TestSiteRepo_GetSiteBySlug(t *testing.T) {
	t.Run("should find a site by its slug", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := testSite(t, repo, "ams-02")

		got, err := repo.GetSiteBySlug("ams-02")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.ID != want.ID {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", want.ID, got.ID)
		}
	})

	t.Run("should return ErrNotFound for an unknown slug", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		_, err := repo.GetSiteBySlug("nowhere")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("\nwanted:\nErrNotFound\ngot:\n%v", err)
		}
	})
}

func TestSiteRepo_ListSites(t *testing.T) {
	t.Run("should filter by region and order by name", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testSite(t, repo, "fra-01")
		testSite(t, repo, "ams-02")

		other := testSite(t, repo, "iad-01")
		other.Region = "us-east"
		if err := repo.UpdateSite(other); err != nil {
			t.Fatalf("updating site: %v", err)
		}

		got, err := repo.ListSites(domain.SiteFilter{Region: "eu-central"})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
		if got[0].Slug != "ams-02" || got[1].Slug != "fra-01" {
			t.Fatalf("\nwanted:\n[ams-02 fra-01]\ngot:\n[%s %s]", got[0].Slug, got[1].Slug)
		}
	})

	t.Run("should match the query against name and slug", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testSite(t, repo, "fra-01")
		testSite(t, repo, "ams-02")

		got, err := repo.ListSites(domain.SiteFilter{Query: "fra"})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}
	})
}

func TestSiteRepo_DeleteSite(t *testing.T) {
	t.Run("should delete an empty site", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")

		if err := repo.DeleteSite(site.ID); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		_, err := repo.GetSite(site.ID)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("\nwanted:\nErrNotFound\ngot:\n%v", err)
		}
	})

	t.Run("should refuse to delete a site that still has racks", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		site := testSite(t, repo, "fra-01")
		testRack(t, repo, site.ID, "R101")

		err := repo.DeleteSite(site.ID)
		if !errors.Is(err, ErrReferenced) {
			t.Fatalf("\nwanted:\nErrReferenced\ngot:\n%v", err)
		}
	})

	t.Run("should return ErrNotFound for an unknown id", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		err := repo.DeleteSite(newID(t))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("\nwanted:\nErrNotFound\ngot:\n%v", err)
		}
	})
}
