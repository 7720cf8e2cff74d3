// Package domain defines the core data model of the netbox application.
// It contains the primary entities tracked by the system, such as Site, Rack,
// Device, Prefix, and IPAddress, as well as the repository interfaces that
// define the contracts for data persistence.
//
// This package serves as the central point for application-wide types and
// business rules, ensuring a clean separation between the application's core
// logic and its implementation details, such as the database, the HTTP API,
// or external services. By defining interfaces for repositories, the domain
// package remains independent of the data storage technology.
package domain
