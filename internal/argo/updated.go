package argo

import (
	"context"

	"github.com/roach88/argosync/internal/content"
)

// GetUpdated returns one page of the entities of typeID changed after since.
//
// Each entity contributes its top-ranked qualifying revision in the canonical
// language: never-synced revisions (changed NULL) first, then the most recent
// changed, then the highest revision id. Rows are ordered by revision id.
//
// Count is the total before pagination. NextOffset is set only while
// offset+limit < count.
func (s *Service) GetUpdated(ctx context.Context, typeID string, onlyPublished bool, since int64, limit, offset int) (content.SyncPage, error) {
	et, err := s.entityType(typeID)
	if err != nil {
		return content.SyncPage{}, err
	}
	if !et.Editorial() {
		return content.SyncPage{}, newError(CodeUnsupportedType, typeID, "", "entity type is not editorial", nil)
	}
	if limit < 0 || offset < 0 {
		return content.SyncPage{}, newError(CodeInvalidPayload, typeID, "", "limit and offset must not be negative", nil)
	}

	ids, err := s.store.RankedRevisionIDs(ctx, content.UpdatedQuery{
		TypeID:        typeID,
		Langcode:      s.langcode,
		Since:         since,
		OnlyPublished: onlyPublished,
	})
	if err != nil {
		return content.SyncPage{}, classify(err, CodeStorageFailure, typeID, "", "rank revisions")
	}

	count := len(ids)
	start := min(offset, count)
	end := start + min(limit, count-start)

	page := content.SyncPage{
		Data:  []content.Summary{},
		Count: count,
	}
	if limit < count-offset {
		next := offset + limit
		page.NextOffset = &next
	}

	if end > start {
		revs, err := s.store.LoadRevisions(ctx, typeID, ids[start:end])
		if err != nil {
			return content.SyncPage{}, classify(err, CodeStorageFailure, typeID, "", "load revisions")
		}
		page.Data = make([]content.Summary, 0, len(revs))
		for _, rev := range revs {
			page.Data = append(page.Data, content.Summarize(rev))
		}
	}

	s.logger.Debug("sync page computed",
		"type", typeID,
		"since", since,
		"only_published", onlyPublished,
		"count", count,
		"returned", len(page.Data),
	)

	return page, nil
}
