// Package store provides the SQL-backed revisioned entity store and deletion
// ledger used by the sync core.
//
// The store keeps three tables:
//   - entities: one row per entity, with its uuid, bundle and current
//     (default) revision pointer
//   - entity_revisions: one row per (type, revision, language); a revision is
//     a complete snapshot across all languages of the entity
//   - entity_deletions: the deletion ledger, appended by DeleteEntity
//
// # Critical Patterns
//
// Revision identity:
//   - Revision ids are allocated per entity type inside the commit
//     transaction from a counter table and never reused
//   - SaveRevision always writes a new revision; rows are never updated
//
// Deterministic queries:
//   - Every multi-row query has an explicit ORDER BY
//   - The sync ranking query is compiled by querysql (ROW_NUMBER window)
//
// Current revision pointer:
//   - Moves to a new revision when it is published, or when the current
//     revision is not published. Unique-key lookups return the current
//     revision, so they can lag behind newer drafts.
//
// # Database Configuration
//
// SQLite (default) is opened with WAL mode, synchronous=NORMAL,
// busy_timeout=5000 and foreign_keys=ON, and a single connection. MySQL 8+
// and Postgres are supported through OpenDriver; both provide the window
// functions the ranking query needs.
package store
