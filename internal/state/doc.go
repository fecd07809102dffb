// Package state persists run history in SQLite: one row per engine run and
// one row per executed step with its outcome, attempts, and checksum. The
// catalog itself is the source of truth for staleness; this store exists for
// reporting and for inspecting what happened on previous runs.
package state
