// Package store persists harvested talks in SQLite.
//
// The Store owns the database connection, applies the embedded ordered
// migrations, and exposes get-or-create helpers for the reference tables
// (speakers, organizations, callings, conferences) alongside the single
// transactional write that creates a talk and all of its child rows.
//
// Talks are keyed by (title, conference). CreateTalk reports whether the talk
// row was inserted or already existed; child rows are written only when the
// talk is created, so text, URLs, and topics are first-write-wins.
//
// The database expects a single writer. Busy errors from the SQLite driver are
// retried with a short backoff; anything beyond that is surfaced to callers.
package store
