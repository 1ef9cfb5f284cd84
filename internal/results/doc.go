// Package results persists simulation runs in a SQLite database. Every saved
// run gets a UUID and a sequential label (simulation_output_001, ...); its
// time vector and sink series are stored as snappy-compressed float64 blobs
// next to the settings snapshot and the debug probe records needed to rebuild
// the per-segment debug database later.
package results
