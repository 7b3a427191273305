package argo

import (
	"context"

	"github.com/roach88/argosync/internal/content"
)

// DeletionLogView is the response shape of GetDeletionLog.
type DeletionLogView struct {
	Deleted []content.Deletion `json:"deleted"`
}

// GetDeletionLog returns every logged deletion.
func (s *Service) GetDeletionLog(ctx context.Context) (DeletionLogView, error) {
	deletions, err := s.ledger.Deletions(ctx)
	if err != nil {
		return DeletionLogView{}, classify(err, CodeStorageFailure, "", "", "read deletion log")
	}
	if deletions == nil {
		deletions = []content.Deletion{}
	}
	return DeletionLogView{Deleted: deletions}, nil
}

// ResetDeletionLog removes the acknowledged entries from the ledger in one
// batch. Unknown uuids are ignored and an empty set does nothing.
func (s *Service) ResetDeletionLog(ctx context.Context, deleted []content.Deletion) error {
	seen := make(map[string]struct{}, len(deleted))
	keys := make([]string, 0, len(deleted))
	for _, d := range deleted {
		if d.UUID == "" {
			continue
		}
		if _, dup := seen[d.UUID]; dup {
			continue
		}
		seen[d.UUID] = struct{}{}
		keys = append(keys, d.UUID)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.ledger.ClearDeletions(ctx, keys); err != nil {
		return classify(err, CodeStorageFailure, "", "", "clear deletion log")
	}

	s.logger.Info("deletion log cleared", "keys", len(keys))
	return nil
}
