package argo

import (
	"context"

	"github.com/roach88/argosync/internal/content"
)

// Translate writes a translated revision back and returns the committed copy.
//
// The source is resolved with payload.RevisionID when given. The translated
// candidate then has its publication, moderation state, changed timestamp and
// owner forced before it is committed as one new revision:
//
//   - publishable, non-fragment types are saved unpublished
//   - a payload.StateID of "published" publishes any publishable type,
//     fragments included
//   - moderated entities get payload.StateID, or the workflow's initial state
//     when none is given
//   - changed is the service clock's now
//   - the owner is the principal from ctx, or the configured service principal
//
// Every successful call creates a revision; retrying re-runs resolution.
func (s *Service) Translate(ctx context.Context, typeID, key string, payload content.TranslationPayload) (*content.Revision, error) {
	et, err := s.entityType(typeID)
	if err != nil {
		return nil, err
	}

	src, err := s.Resolve(ctx, typeID, key, payload.RevisionID)
	if err != nil {
		return nil, err
	}

	candidate, err := s.translator.Translate(ctx, src, payload)
	if err != nil {
		return nil, classify(err, CodeInvalidPayload, typeID, key, "translate")
	}

	state := payload.State()

	if et.Publishable && !et.Fragment {
		candidate.Published = false
	}
	if et.Publishable && state == content.StatePublished {
		candidate.Published = true
	}

	moderation, err := s.oracle.Moderation(candidate)
	if err != nil {
		return nil, classify(err, CodeStorageFailure, typeID, key, "moderation lookup")
	}
	if moderation.Moderated {
		if state == "" {
			candidate.ModerationState = moderation.InitialState
		} else {
			candidate.ModerationState = state
		}
	}

	if et.TracksChanged {
		candidate.SetChanged(s.clock.Now().Unix())
	}

	if et.HasOwner {
		candidate.OwnerID = s.principalFor(ctx)
	}

	saved, err := s.store.SaveRevision(ctx, candidate)
	if err != nil {
		return nil, classify(err, CodeStorageFailure, typeID, key, "commit translation")
	}

	s.logger.Info("translation committed",
		"type", typeID,
		"uuid", saved.UUID,
		"langcode", saved.Langcode,
		"source_revision", src.RevisionID,
		"revision", saved.RevisionID,
		"published", saved.Published,
		"moderation_state", saved.ModerationState,
	)

	return saved, nil
}

func (s *Service) principalFor(ctx context.Context) string {
	if p, ok := PrincipalFrom(ctx); ok {
		return p
	}
	return s.principal
}
