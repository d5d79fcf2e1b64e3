// Package entities implements the local Entity Store on SQLite.
//
// All read paths exclude TOMBSTONED rows unless the caller explicitly asks
// for them. The schema enforces at most one non-tombstoned entity per
// (shared_group_id, owner_id) pair; a violation surfaces as
// common.ErrAlreadyExists.
package entities
