package db

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/sashashura/netbox/domain"
)

func TestPrefixRepo_CreatePrefix(t *testing.T) {
	t.Run("should insert a prefix and read it back", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		want := testPrefix(t, repo, "10.0.0.0/16")

		got, err := repo.GetPrefix(want.ID)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.Prefix != want.Prefix {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", want.Prefix, got.Prefix)
		}
	})

	t.Run("should reject a duplicate prefix in the same vrf", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testPrefix(t, repo, "10.0.0.0/16")

		dup := &domain.Prefix{
			ID:     newID(t),
			Prefix: netip.MustParsePrefix("10.0.0.0/16"),
			Status: domain.PrefixStatusActive,
		}
		err := repo.CreatePrefix(dup)
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("\nwanted:\nErrDuplicate\ngot:\n%v", err)
		}
	})

	t.Run("should allow the same prefix in different vrfs", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testPrefix(t, repo, "10.0.0.0/16")

		other := &domain.Prefix{
			ID:     newID(t),
			Prefix: netip.MustParsePrefix("10.0.0.0/16"),
			VRF:    "cust-a",
			Status: domain.PrefixStatusActive,
		}
		if err := repo.CreatePrefix(other); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})
}

func TestPrefixRepo_ListChildPrefixes(t *testing.T) {
	t.Run("should return only prefixes contained in the parent", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		parent := testPrefix(t, repo, "10.0.0.0/16")
		testPrefix(t, repo, "10.0.1.0/24")
		testPrefix(t, repo, "10.0.2.0/24")
		testPrefix(t, repo, "10.1.0.0/24")
		testPrefix(t, repo, "192.168.0.0/24")

		got, err := repo.ListChildPrefixes(parent)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
		if got[0].Prefix.String() != "10.0.1.0/24" {
			t.Fatalf("\nwanted:\n10.0.1.0/24\ngot:\n%s", got[0].Prefix)
		}
		if got[1].Prefix.String() != "10.0.2.0/24" {
			t.Fatalf("\nwanted:\n10.0.2.0/24\ngot:\n%s", got[1].Prefix)
		}
	})

	t.Run("should not mix ipv4 and ipv6 children", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		parent := testPrefix(t, repo, "2001:db8::/32")
		testPrefix(t, repo, "2001:db8:1::/48")
		testPrefix(t, repo, "10.0.0.0/24")

		got, err := repo.ListChildPrefixes(parent)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", len(got))
		}
		if got[0].Prefix.String() != "2001:db8:1::/48" {
			t.Fatalf("\nwanted:\n2001:db8:1::/48\ngot:\n%s", got[0].Prefix)
		}
	})
}

func TestPrefixRepo_ListPrefixes(t *testing.T) {
	t.Run("should resolve a contains filter for a bare address", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testPrefix(t, repo, "10.0.0.0/16")
		testPrefix(t, repo, "10.0.1.0/24")
		testPrefix(t, repo, "10.0.2.0/24")

		got, err := repo.ListPrefixes(domain.PrefixFilter{Contains: "10.0.1.55"})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
	})

	t.Run("should order parents before their children", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		testPrefix(t, repo, "10.0.1.0/24")
		testPrefix(t, repo, "10.0.0.0/16")

		got, err := repo.ListPrefixes(domain.PrefixFilter{})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(got) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(got))
		}
		if got[0].Prefix.String() != "10.0.0.0/16" {
			t.Fatalf("\nwanted:\n10.0.0.0/16 first\ngot:\n%s", got[0].Prefix)
		}
	})
}
