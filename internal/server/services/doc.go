// Package services contains server-side business logic: curator accounts,
// the shared record catalog and attachment presigning. Services talk to
// PostgreSQL through a repomanager.RepositoryManager and return the
// sentinels in internal/common; the gRPC layer maps them to status codes.
package services
