// Package models holds the rows stored by the reference server.
package models

import "time"

// Curator is a registered account. PasswordHash is argon2id over the salt.
type Curator struct {
	ID           string
	Username     string
	Salt         []byte
	PasswordHash []byte
}

// Record is the remote copy of a curated entity. Deleted rows are kept
// so late deletes and updates can be answered with NotFound.
type Record struct {
	ID              string
	SharedGroupID   string
	OwnerID         string
	OriginalOwnerID string
	Name            string
	Payload         map[string]any
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
