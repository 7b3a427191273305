package argo

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/roach88/argosync/internal/content"
)

// DefaultLangcode is the canonical language partition tracked by GetUpdated.
const DefaultLangcode = "en-US"

// DefaultServicePrincipal owns translated revisions when the context carries
// no principal.
const DefaultServicePrincipal = "argo"

// Service implements the sync operations over an EntityStore.
type Service struct {
	store      EntityStore
	types      TypeRegistry
	ledger     DeletionLog
	exporter   Exporter
	translator Translator
	oracle     ModerationOracle
	clock      Clock
	logger     *slog.Logger

	langcode  string
	principal string
}

// Option configures a Service.
type Option func(*Service)

// WithDeletionLog sets the deletion ledger.
// Default: the store itself, when it implements DeletionLog.
func WithDeletionLog(l DeletionLog) Option {
	return func(s *Service) { s.ledger = l }
}

// WithExporter sets the exporter used by Export and EntityInfo.
func WithExporter(e Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithTranslator sets the translator used by Translate.
func WithTranslator(t Translator) Option {
	return func(s *Service) { s.translator = t }
}

// WithModerationOracle sets the moderation oracle.
// Default: nothing is moderated.
func WithModerationOracle(o ModerationOracle) Option {
	return func(s *Service) { s.oracle = o }
}

// WithClock sets the clock used for changed timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLangcode sets the canonical language partition. Default: en-US.
func WithLangcode(langcode string) Option {
	return func(s *Service) { s.langcode = langcode }
}

// WithServicePrincipal sets the fallback owner of translated revisions.
// Default: "argo".
func WithServicePrincipal(principal string) Option {
	return func(s *Service) { s.principal = principal }
}

// New creates a Service over store and types.
//
// An exporter and a translator are required. The deletion ledger defaults to
// store when store implements DeletionLog.
func New(store EntityStore, types TypeRegistry, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("argo: entity store is required")
	}
	if types == nil {
		return nil, errors.New("argo: type registry is required")
	}

	s := &Service{
		store:     store,
		types:     types,
		oracle:    unmoderated{},
		clock:     systemClock{},
		logger:    slog.Default(),
		langcode:  DefaultLangcode,
		principal: DefaultServicePrincipal,
	}
	if l, ok := store.(DeletionLog); ok {
		s.ledger = l
	}

	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.exporter == nil:
		return nil, errors.New("argo: exporter is required")
	case s.translator == nil:
		return nil, errors.New("argo: translator is required")
	case s.ledger == nil:
		return nil, errors.New("argo: deletion log is required")
	}
	return s, nil
}

// Langcode returns the canonical language partition.
func (s *Service) Langcode() string {
	return s.langcode
}

// entityType looks up a descriptor; unknown ids are UNSUPPORTED_TYPE.
func (s *Service) entityType(typeID string) (content.EntityType, error) {
	et, ok := s.types.Lookup(typeID)
	if !ok {
		return content.EntityType{}, newError(CodeUnsupportedType, typeID, "", "unknown entity type", nil)
	}
	return et, nil
}

// Export resolves a revision and serializes it for translation.
func (s *Service) Export(ctx context.Context, typeID, key string, revisionID *int64) (content.Document, error) {
	rev, err := s.Resolve(ctx, typeID, key, revisionID)
	if err != nil {
		return nil, err
	}

	doc, err := s.exporter.Export(rev)
	if err != nil {
		return nil, classify(err, CodeInvalidPayload, typeID, key, "export failed")
	}
	return doc, nil
}

// EntityInfo is the current identity of an entity.
type EntityInfo struct {
	UUID       string `json:"uuid"`
	RevisionID int64  `json:"revisionId"`
}

// EntityInfo returns the uuid and current revision id of an entity by its
// numeric id.
func (s *Service) EntityInfo(ctx context.Context, typeID string, id int64) (EntityInfo, error) {
	if _, err := s.entityType(typeID); err != nil {
		return EntityInfo{}, err
	}

	rev, err := s.store.Load(ctx, typeID, id)
	if err != nil {
		return EntityInfo{}, classify(err, CodeStorageFailure, typeID, strconv.FormatInt(id, 10), "load entity")
	}

	return EntityInfo{
		UUID:       rev.UUID,
		RevisionID: s.exporter.RevisionID(rev),
	}, nil
}
