// Package client contains the client-side transport and storage bootstrap
// of PlayKeeper.
//
// GRPCClient talks to the PlayKeeper server. It injects the access token
// into every call through interceptors, maps gRPC status codes to the
// common sync taxonomy (transient, rejected, version conflict) and
// implements the remote interfaces the sync engine consumes:
// syncer.RemoteStore, syncer.GroupMembership and streaming.Remote.
//
// InitDatabase opens the local SQLite database and applies the embedded
// goose migrations; NewRepositories wires the local repositories on top of
// it.
package client
