// Package content defines the editorial entity model shared by the sync core
// and the entity stores.
//
// The model is deliberately storage-agnostic:
//   - EntityType: descriptor of a content type and its capabilities
//   - Revision: immutable snapshot of one entity in one language
//   - Summary / SyncPage: projection returned by incremental sync queries
//   - TranslationPayload: write-back input from the localization pipeline
//   - Deletion: one entry of the deletion ledger
//
// # Ordering Rules
//
// Revision ids are store-assigned and monotonic per entity type. They are the
// only cursor used for paging. Changed timestamps may be NULL or
// non-monotonic and are used solely to rank revisions within one entity
// (see SelectLatest).
//
// Documents produced for export are serialized with MarshalCanonical so that
// the same revision always exports to identical bytes.
package content
