// Package translator merges translated field content from the localization
// pipeline onto a source revision, producing an unsaved candidate.
package translator

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/text/language"

	"github.com/roach88/argosync/internal/content"
)

// Translator is the default field-merge translator.
type Translator struct {
	// AllowNewFields accepts payload fields the source does not have.
	AllowNewFields bool
}

// New creates a strict translator: payload fields must exist on the source.
func New() *Translator {
	return &Translator{}
}

// Translate returns a candidate revision in p.TargetLangcode derived from src.
//
// The candidate keeps src's entity identity, names src as its parent revision
// and overlays p.Fields. Nested objects are merged key by key; every other
// value replaces the source value, which must have the same JSON kind.
//
// Returns an error wrapping content.ErrInvalidPayload when the target language
// is missing or malformed, or a field does not fit the source.
func (t *Translator) Translate(_ context.Context, src *content.Revision, p content.TranslationPayload) (*content.Revision, error) {
	if src == nil {
		return nil, fmt.Errorf("translate: nil source: %w", content.ErrNotFound)
	}

	langcode, err := CanonicalLangcode(p.TargetLangcode)
	if err != nil {
		return nil, err
	}

	fields := src.Clone().Fields
	if fields == nil {
		fields = map[string]any{}
	}
	if err := t.merge(fields, p.Fields, ""); err != nil {
		return nil, err
	}

	candidate := src.Clone()
	candidate.ParentRevisionID = src.RevisionID
	candidate.RevisionID = 0
	candidate.Langcode = langcode
	candidate.DefaultLangcode = langcode == src.Langcode && src.DefaultLangcode
	candidate.Fields = fields

	return candidate, nil
}

// CanonicalLangcode validates a BCP 47 tag and returns its canonical form
// (for example "pt-br" becomes "pt-BR").
func CanonicalLangcode(tag string) (string, error) {
	if tag == "" {
		return "", fmt.Errorf("target language is required: %w", content.ErrInvalidPayload)
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("target language %q: %v: %w", tag, err, content.ErrInvalidPayload)
	}
	return parsed.String(), nil
}

func (t *Translator) merge(dst, src map[string]any, prefix string) error {
	// Sorted so the reported field is deterministic.
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := prefix + name
		incoming := src[name]

		existing, ok := dst[name]
		if !ok || existing == nil {
			if !ok && !t.AllowNewFields {
				return fmt.Errorf("field %q does not exist on the source: %w", path, content.ErrInvalidPayload)
			}
			dst[name] = incoming
			continue
		}
		if incoming == nil {
			continue
		}

		if nested, isObject := existing.(map[string]any); isObject {
			in, ok := incoming.(map[string]any)
			if !ok {
				return mismatch(path, existing, incoming)
			}
			if err := t.merge(nested, in, path+"."); err != nil {
				return err
			}
			continue
		}

		if kindOf(existing) != kindOf(incoming) {
			return mismatch(path, existing, incoming)
		}
		dst[name] = incoming
	}
	return nil
}

func mismatch(path string, existing, incoming any) error {
	return fmt.Errorf("field %q: expected %s, got %s: %w",
		path, kindOf(existing), kindOf(incoming), content.ErrInvalidPayload)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
