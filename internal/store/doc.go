// Package store is the local SQLite database backing offline-first
// state: synced timeline posts, the outbox of posts composed offline,
// and per-source sync bookkeeping. Sync phases read and write it; the
// feed engine never touches it directly.
package store
