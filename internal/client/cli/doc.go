// Package cli provides the playsync command-line client.
//
// Every command edits the local SQLite store first and works the same way
// offline. The network is only touched by login, register, sync and watch,
// and by the invite flush that runs as part of them.
//
// Commands:
//   - register, login, logout, friend-code
//   - add-session, add-game, list, delete, resolve
//   - invite friend, invite group, friends
//   - friend accept|reject|remove, group create|accept|cancel|leave: online
//     social transitions
//   - sync: one batch run per domain plus an invite flush
//   - watch: periodic sync, live social subscriptions and an optional
//     Prometheus endpoint
//   - status: pending changes and the last completed sync
package cli
