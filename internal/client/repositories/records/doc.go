// Package records is the offline record store.
//
// The whole record collection is kept as one JSON array under a single key
// of the metadata key-value store. Load always returns a usable slice: a
// missing blob is an empty collection, and an unreadable blob is reported as
// ErrLocalRead alongside an empty collection. Save failures are reported as
// ErrLocalWrite; callers treat them as a degraded state, never a fatal one.
//
// Each stored record is decoded on top of models.DefaultRecord, so blobs
// written before a field existed still yield fully populated records.
package records
