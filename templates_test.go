package jsaudit_test

import (
	"testing"

	"github.com/fwojciec/jsaudit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates_AreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, jsaudit.DefaultTemplates().Validate())
}

func TestTemplates_Validate(t *testing.T) {
	t.Parallel()

	valid := jsaudit.Templates{
		WholeDocument:     "Analyze {code}",
		ChunkContinuation: "Fragment {index}/{total} of {origin}: {code}",
		Summary:           "Merge {reports}",
	}

	tests := []struct {
		name   string
		modify func(*jsaudit.Templates)
		field  string
	}{
		{
			name:   "empty whole document",
			modify: func(tt *jsaudit.Templates) { tt.WholeDocument = "" },
			field:  "prompts.whole_document",
		},
		{
			name:   "whole document without code",
			modify: func(tt *jsaudit.Templates) { tt.WholeDocument = "Analyze {origin}" },
			field:  "prompts.whole_document",
		},
		{
			name:   "whole document with chunk-only placeholder",
			modify: func(tt *jsaudit.Templates) { tt.WholeDocument = "{code} part {index}" },
			field:  "prompts.whole_document",
		},
		{
			name:   "chunk without code",
			modify: func(tt *jsaudit.Templates) { tt.ChunkContinuation = "part {index}" },
			field:  "prompts.chunk_continuation",
		},
		{
			name:   "summary without reports",
			modify: func(tt *jsaudit.Templates) { tt.Summary = "Merge {code}" },
			field:  "prompts.summary",
		},
		{
			name:   "malformed summary",
			modify: func(tt *jsaudit.Templates) { tt.Summary = "Merge {reports" },
			field:  "prompts.summary",
		},
	}

	require.NoError(t, valid.Validate())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			templates := valid
			tc.modify(&templates)

			err := templates.Validate()

			require.ErrorIs(t, err, jsaudit.ErrInvalidConfiguration)
			var cfgErr *jsaudit.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestTemplates_Validate_UnknownPlaceholderIsMissingPlaceholder(t *testing.T) {
	t.Parallel()

	templates := jsaudit.DefaultTemplates()
	templates.Summary = "{reports} for {target}"

	err := templates.Validate()

	var missing *jsaudit.MissingPlaceholderError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "target", missing.Name)
}
