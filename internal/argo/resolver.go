package argo

import (
	"context"
	"strconv"

	"github.com/roach88/argosync/internal/content"
)

// Resolve returns the one revision a (type, uuid, revision id) triple refers to.
//
// An explicit revisionID is loaded directly and the uuid is not consulted.
// Otherwise the uuid is looked up and, for revisionable types, promoted to the
// entity's latest revision, which may be a draft newer than the current one.
//
// When several entities share the uuid the lowest id wins. Callers must not
// rely on which.
func (s *Service) Resolve(ctx context.Context, typeID, key string, revisionID *int64) (*content.Revision, error) {
	et, err := s.entityType(typeID)
	if err != nil {
		return nil, err
	}

	if revisionID != nil {
		rev, err := s.store.LoadRevision(ctx, typeID, *revisionID)
		if err != nil {
			return nil, classify(err, CodeStorageFailure, typeID, strconv.FormatInt(*revisionID, 10), "load revision")
		}
		return rev, nil
	}

	matches, err := s.store.LoadByUniqueKey(ctx, typeID, key)
	if err != nil {
		return nil, classify(err, CodeStorageFailure, typeID, key, "load by uuid")
	}
	if len(matches) == 0 {
		return nil, newError(CodeNotFound, typeID, key, "no entity with this uuid", content.ErrNotFound)
	}
	if len(matches) > 1 {
		s.logger.Warn("multiple entities share a uuid, using the first",
			"type", typeID,
			"uuid", key,
			"matches", len(matches),
			"id", matches[0].ID,
		)
	}

	entity := matches[0]
	if !et.Revisionable {
		return entity, nil
	}

	latest, err := s.store.LatestRevisionID(ctx, typeID, entity.ID)
	if err != nil {
		return nil, classify(err, CodeStorageFailure, typeID, key, "latest revision")
	}
	if latest == entity.RevisionID {
		return entity, nil
	}

	rev, err := s.store.LoadRevision(ctx, typeID, latest)
	if err != nil {
		return nil, classify(err, CodeStorageFailure, typeID, key, "load latest revision")
	}
	return rev, nil
}
