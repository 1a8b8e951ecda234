// Package records is the local store of batch-reconciled records.
//
// One SQLiteRepository serves one domain (sessions, library items); all
// domains share the same table layout, so the engine and the UI work with
// the payload-agnostic models.Record envelope. Typed wraps a repository for
// callers that want decoded payloads.
//
// Every read-check-write sequence (Update, ApplyRemote) runs in a single
// transaction carried through the context (see dbx.WithTx), which is what
// keeps a pull from overwriting a record the user is editing.
package records
