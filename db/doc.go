// Package db provides the database layer for the netbox application.
// It encapsulates all interactions with the underlying SQL database, managing
// data persistence for the DCIM entities (sites, racks, devices, interfaces,
// cables), the IPAM entities (prefixes, IP addresses, VLANs), virtualization
// (clusters, virtual machines), and the extras (changelog, webhooks, scripts,
// image attachments).
//
// This package is responsible for:
// - Establishing and managing database connections (`db.go`).
// - Defining database-specific data structures that map to SQL table schemas.
// - Implementing the repository interfaces from the `domain` package.
// - Handling data conversion between domain structs and database-friendly
//   structs, including the use of `sql.Null*` types for nullable columns and
//   JSON columns for tags, custom fields, and other structured values.
// - Managing database migrations (`migrations/`).
// - Providing common database utility types (`types.go`).
package db
