// Package bulkimport loads objects in bulk from CSV files and device types
// from YAML definitions. Imports are best-effort per row: a bad row is
// reported with its line number and the remaining rows still import.
package bulkimport
