// Package models defines the client-side data model of FieldKeeper: curated
// entities with their sync-state fields, the remote record shape exchanged
// with the Remote Gateway, and the edit change set applied by curators.
package models
