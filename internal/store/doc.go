// Package store is the persistence collaborator: subjects and their
// schedule entries in SQLite, fronted by a single worker goroutine that
// consumes typed request messages and replies on per-request channels.
//
// The engine never shares live references into storage; every response
// carries detached copies. Callers bound their wait on a reply (see Client);
// an expired wait surfaces as ErrRetrievalTimeout.
package store
