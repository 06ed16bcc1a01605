// Package store holds the in-memory working set of orders for the business
// day.
//
// The store is fed by the sync adapter (snapshots and push events) and by the
// kitchen actions (optimistic updates). Readers take a Snapshot, which is a
// deep copy safe to use without locking. Mutations signal every subscriber so
// the UI and the aggregator can react without polling.
//
// Deletes leave a tombstone for a while so that an update or a snapshot that
// was already in flight cannot bring a deleted order back.
package store
