// Package trace defines the data model shared by the acquisition pipeline,
// the daemon and the CLI. It contains:
//
//   - Preamble: the per-session calibration record read from the scope
//   - RawAcquisition: one digitizer read in raw units, already classified
//   - Calibrated: one acquisition converted to volts
//   - Derived: the dA/CD signals computed from a pump/no-pump pair
//   - Snapshot: the per-ingest view handed to presentation consumers
//
// These types are shared across pipeline, daemon and client code to avoid
// duplicate definitions and keep JSON contracts consistent.
package trace
