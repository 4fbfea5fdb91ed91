// Package types defines the data model for the fieldstore engine: the
// column model with structured (composite) element types, the row admin
// columns and sync-state machine, the key-value metadata entry, table
// definitions, and the standard errors shared by all packages.
//
// Everything in this package is pure data and validation; storage lives
// in internal/sqlite.
package types
