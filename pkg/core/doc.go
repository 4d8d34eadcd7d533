// Package core defines the shared language of the dbview system.
//
// This package contains:
//   - Value model (DatabaseName, DatabaseTable, DatabaseColumn, DatabaseRow)
//   - The Database contract every backend implements
//   - Backend open configuration (OpenConfig)
//   - The error taxonomy shared by backends and consumers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
