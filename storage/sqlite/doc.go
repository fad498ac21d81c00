// Package sqlite implements the storage repositories on a single SQLite file
// using the pure Go modernc.org/sqlite driver.
//
// Page spans and metadata are stored as JSON columns. Content hashes are
// stored as signed 64-bit integers (the bit pattern of core.ID).
package sqlite
