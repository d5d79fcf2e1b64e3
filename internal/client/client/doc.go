// Package client contains the client-side building blocks that talk to the
// remote store.
//
// # Overview
//
// The package provides:
//  1. The Remote Gateway contract (see Gateway) the reconciliation engine
//     depends on: List, Create, Update, Delete and Ping.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects the curator access token via an interceptor, walks
//     paginated listings, and maps gRPC status codes to sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport failures surface as the sentinels of package common:
// ErrUnavailable (the network or server is down, retry later),
// ErrRemoteRejected (the remote refuses the record, e.g. a stale remote id),
// and ErrUnauthorized. Callers match them with errors.Is.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation and timeouts.
package client
