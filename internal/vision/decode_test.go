package vision

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsmart/internal/book"
)

func TestDecode_BothShapesAgree(t *testing.T) {
	wrapped := `{"books":[{"title":"Dune","author":"Frank Herbert"},{"title":"Emma"},{"author":"Homer"}]}`
	bare := `[{"title":"Dune","author":"Frank Herbert"},{"title":"Emma"},{"author":"Homer"}]`

	want := []book.Candidate{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Emma", Author: ""},
		{Title: "", Author: "Homer"},
	}

	fromWrapped, found, err := Decode(wrapped)
	require.NoError(t, err)
	assert.True(t, found)

	fromBare, found, err := Decode(bare)
	require.NoError(t, err)
	assert.True(t, found)

	if diff := cmp.Diff(want, fromWrapped); diff != "" {
		t.Errorf("wrapped shape mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fromWrapped, fromBare); diff != "" {
		t.Errorf("shapes decode differently (-wrapped +bare):\n%s", diff)
	}
}

func TestDecode_Normalization(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []book.Candidate
	}{
		{
			name:    "non-string fields become empty",
			content: `{"books":[{"title":42,"author":null},{"title":["x"],"author":"Le Guin"}]}`,
			want:    []book.Candidate{{}, {Author: "Le Guin"}},
		},
		{
			name:    "non-object entries are kept",
			content: `["Dune", 7, null]`,
			want:    []book.Candidate{{}, {}, {}},
		},
		{
			name:    "duplicates pass through",
			content: `{"books":[{"title":"Dune","author":"Frank Herbert"},{"title":"Dune","author":"Frank Herbert"}]}`,
			want:    []book.Candidate{{Title: "Dune", Author: "Frank Herbert"}, {Title: "Dune", Author: "Frank Herbert"}},
		},
		{
			name:    "extra fields ignored",
			content: `{"books":[{"title":"Dune","author":"Frank Herbert","confidence":0.9}],"note":"ok"}`,
			want:    []book.Candidate{{Title: "Dune", Author: "Frank Herbert"}},
		},
		{
			name:    "empty list",
			content: `{"books":[]}`,
			want:    []book.Candidate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := Decode(tt.content)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_SoftFailure(t *testing.T) {
	for _, content := range []string{
		`{"result":"no books here"}`,
		`{"books":null}`,
		`{"books":"Dune"}`,
		`"Dune"`,
		`null`,
	} {
		t.Run(content, func(t *testing.T) {
			got, found, err := Decode(content)
			require.NoError(t, err)
			assert.False(t, found)
			assert.Empty(t, got)
		})
	}
}

func TestDecode_EmptyReply(t *testing.T) {
	got, found, err := Decode("  ")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestDecode_NotJSON(t *testing.T) {
	_, _, err := Decode("Sorry, I can't help with that.")
	assert.ErrorIs(t, err, book.ErrUnparseable)
}
