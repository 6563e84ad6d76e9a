// Package analysis implements the deterministic numerical core of the
// epidemiological signal engine: rolling-mean smoothing with an explicit
// undefined marker, log growth rates, pandemic wave detection, renewal-style
// reproduction number estimation, age-stratified mortality risk, and
// cross-metric correlation.
//
// # Undefined values
//
// Daily observations may be unreported, and several derived quantities are
// only meaningful once enough history exists. Every exported result type
// therefore distinguishes "undefined" from a true zero: undefined values are
// nil *float64 fields (which also keeps serialized output valid JSON, where
// NaN is not representable). Numeric kernels use NaN internally and convert
// at the boundary.
//
// # Determinism
//
// All functions are pure: identical inputs and parameters produce
// bit-for-bit identical outputs. Nothing in this package reads the clock,
// draws random numbers, or holds state between calls.
//
// # Gap policy
//
// Input series are reindexed onto a dense daily grid between their first and
// last dates. A day with no report (or an explicit null) is forward-filled
// from the most recent reported value only when the gap is at most
// Processor.MaxGapDays; longer gaps leave the affected days undefined rather
// than fabricating data. A smoothing window that touches an undefined day is
// itself undefined.
package analysis
