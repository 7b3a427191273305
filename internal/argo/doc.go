// Package argo is the sync layer between the content store and the external
// localization pipeline.
//
// Service exposes six operations to a transport layer:
//
//   - Export: resolve a revision and serialize it for translation
//   - Translate: write a translated revision back (Write-Back Coordinator)
//   - GetUpdated: list revisions changed since a checkpoint (Sync Query Engine)
//   - GetDeletionLog / ResetDeletionLog: read and acknowledge the deletion ledger
//   - EntityInfo: current uuid and revision id of an entity
//
// Resolution of (type, uuid, revision id?) to one concrete revision is done by
// Resolve and shared by Export and Translate.
//
// Guarantees:
//   - GetUpdated returns at most one row per entity, ordered by revision id
//   - Translate commits exactly one new revision and never edits an existing one
//   - Translate always stamps changed with the service clock and the owner
//     with the service principal
//   - Every failure is an *Error carrying one of the Code* values
//
// The service holds no mutable state; concurrency is delegated to the store.
package argo
