// Package cli provides the interactive FieldKeeper command-line client.
//
// It wires configuration, the local store, the sync engine and scheduler,
// and an interactive REPL. The scheduler runs in the background while the
// REPL is open, so entities created offline reach the server as soon as it
// becomes reachable.
//
// Commands:
//   - register, login, logout
//   - new, edit, delete, attach
//   - list [all], show
//   - sync, status
//   - help, exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
