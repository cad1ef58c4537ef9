// Package sqlite provides the SQLite-backed implementation of the
// digest and search store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. One database
// connection serves both stores:
//
//   - DigestStore: digest and chunk persistence for the ingestion side
//   - SearchStore: vector candidate scans and FTS5 ranked text queries
//     for the retrieval side
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Full-text search uses external-content FTS5
// tables over digests (title, summary, content) and chunk text, kept in
// sync by triggers.
//
// # Data Location
//
// By default the database is stored at ~/.quill/data/quill.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on database-level
// locking provided by SQLite in WAL mode.
package sqlite
