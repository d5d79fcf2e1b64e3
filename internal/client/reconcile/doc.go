// Package reconcile implements the reconciliation engine: the Import pass
// that folds the remote listing into the local store and the Export pass
// that pushes local changes out.
//
// Both passes are per-entity: one entity's failure is logged and counted
// and never aborts the rest of the pass. Every remote call runs under its
// own timeout, and an entity is never submitted twice concurrently.
package reconcile
