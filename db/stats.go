package db

import (
	"fmt"

	"github.com/sashashura/netbox/domain"
)

// kindTables maps tracked object kinds to their tables. Table names are
// fixed strings, never user input.
var kindTables = map[domain.ObjectKind]string{
	domain.KindSite:           "site",
	domain.KindRack:           "rack",
	domain.KindDeviceType:     "device_type",
	domain.KindDevice:         "device",
	domain.KindInterface:      "interface",
	domain.KindCable:          "cable",
	domain.KindPrefix:         "prefix",
	domain.KindIPAddress:      "ip_address",
	domain.KindVLAN:           "vlan",
	domain.KindCluster:        "cluster",
	domain.KindVirtualMachine: "virtual_machine",
}

// CountObjects returns the number of stored rows per tracked object kind.
func (repo *Repository) CountObjects() (map[domain.ObjectKind]int, error) {
	counts := make(map[domain.ObjectKind]int, len(kindTables))
	for kind, table := range kindTables {
		var count int
		err := repo.dbConn.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table))
		if err != nil {
			return nil, fmt.Errorf("counting %s rows : %w", table, err)
		}
		counts[kind] = count
	}
	return counts, nil
}
