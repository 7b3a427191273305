package translator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/testutil"
)

func source() *content.Revision {
	rev := testutil.NewRevision("node", "en-US",
		testutil.WithEntity(4),
		testutil.WithUUID("u-4"),
		testutil.Published(),
		testutil.WithChanged(100),
		testutil.WithField("title", "Hello"),
		testutil.WithField("body", map[string]any{"value": "<p>Hi</p>", "format": "basic_html"}),
		testutil.WithField("tags", []any{"news"}),
		testutil.WithField("weight", int64(3)),
	)
	rev.RevisionID = 9
	rev.DefaultLangcode = true
	return rev
}

func TestTranslate_MergesFields(t *testing.T) {
	src := source()

	got, err := New().Translate(context.Background(), src, content.TranslationPayload{
		TargetLangcode: "fr",
		Fields: map[string]any{
			"title": "Bonjour",
			"body":  map[string]any{"value": "<p>Salut</p>"},
			"tags":  []any{"actualités", "monde"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "fr", got.Langcode)
	assert.Equal(t, int64(4), got.ID)
	assert.Equal(t, "u-4", got.UUID)
	assert.Equal(t, int64(9), got.ParentRevisionID)
	assert.Equal(t, int64(0), got.RevisionID)
	assert.False(t, got.DefaultLangcode)

	assert.Equal(t, "Bonjour", got.Fields["title"])
	assert.Equal(t, map[string]any{"value": "<p>Salut</p>", "format": "basic_html"}, got.Fields["body"])
	assert.Equal(t, []any{"actualités", "monde"}, got.Fields["tags"])
	assert.Equal(t, int64(3), got.Fields["weight"])
}

func TestTranslate_SourceUntouched(t *testing.T) {
	src := source()

	_, err := New().Translate(context.Background(), src, content.TranslationPayload{
		TargetLangcode: "fr",
		Fields:         map[string]any{"body": map[string]any{"value": "x"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "en-US", src.Langcode)
	assert.Equal(t, "<p>Hi</p>", src.Fields["body"].(map[string]any)["value"])
}

func TestTranslate_CanonicalizesLangcode(t *testing.T) {
	got, err := New().Translate(context.Background(), source(), content.TranslationPayload{TargetLangcode: "pt-br"})
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", got.Langcode)
}

func TestTranslate_SameLanguageKeepsDefault(t *testing.T) {
	got, err := New().Translate(context.Background(), source(), content.TranslationPayload{TargetLangcode: "en-US"})
	require.NoError(t, err)
	assert.True(t, got.DefaultLangcode)
}

func TestTranslate_InvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload content.TranslationPayload
	}{
		{"missing language", content.TranslationPayload{}},
		{"malformed language", content.TranslationPayload{TargetLangcode: "not a tag!"}},
		{"unknown field", content.TranslationPayload{TargetLangcode: "fr", Fields: map[string]any{"subtitle": "x"}}},
		{"kind mismatch", content.TranslationPayload{TargetLangcode: "fr", Fields: map[string]any{"title": int64(1)}}},
		{"object replaced by scalar", content.TranslationPayload{TargetLangcode: "fr", Fields: map[string]any{"body": "text"}}},
		{"unknown nested field", content.TranslationPayload{TargetLangcode: "fr", Fields: map[string]any{"body": map[string]any{"summary": "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Translate(context.Background(), source(), tt.payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, content.ErrInvalidPayload)
		})
	}
}

func TestTranslate_AllowNewFields(t *testing.T) {
	tr := &Translator{AllowNewFields: true}

	got, err := tr.Translate(context.Background(), source(), content.TranslationPayload{
		TargetLangcode: "de",
		Fields:         map[string]any{"subtitle": "Hallo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hallo", got.Fields["subtitle"])
}

func TestTranslate_NilValuesSkipped(t *testing.T) {
	got, err := New().Translate(context.Background(), source(), content.TranslationPayload{
		TargetLangcode: "fr",
		Fields:         map[string]any{"title": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Fields["title"])
}
