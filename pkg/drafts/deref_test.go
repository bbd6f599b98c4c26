package drafts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
)

func mustLoad(t *testing.T, content string) any {
	t.Helper()

	doc, err := drafts.Load([]byte(content))
	require.NoError(t, err)

	return doc.Value
}

func TestDereference_LocalPointers(t *testing.T) {
	t.Parallel()

	doc := mustLoad(t, `{
		"definitions": {
			"name": {"type": "string"},
			"a b": {"$ref": "#/definitions/name"},
			"list": {"type": "array", "items": [{"$ref": "#/definitions/a%20b"}]}
		},
		"properties": {
			"first": {"$ref": "#/definitions/name", "description": "dropped"},
			"all": {"$ref": "#/definitions/list"}
		}
	}`)

	out, err := drafts.Dereference(doc)
	require.NoError(t, err)

	props := out.(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["first"])
	assert.Equal(t, map[string]any{
		"type":  "array",
		"items": []any{map[string]any{"type": "string"}},
	}, props["all"])

	// The input is left untouched.
	orig := doc.(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, orig["first"], "$ref")
}

func TestDereference_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"self cycle", `{"definitions": {"a": {"$ref": "#/definitions/a"}}}`, drafts.ErrCyclicRef},
		{"root cycle", `{"properties": {"next": {"$ref": "#"}}}`, drafts.ErrCyclicRef},
		{"mutual cycle", `{"definitions": {"a": {"$ref": "#/definitions/b"}, "b": {"$ref": "#/definitions/a"}}}`, drafts.ErrCyclicRef},
		{"remote", `{"properties": {"x": {"$ref": "other.json#/a"}}}`, drafts.ErrRemoteRef},
		{"missing", `{"properties": {"x": {"$ref": "#/definitions/none"}}}`, drafts.ErrBadRef},
		{"not a pointer", `{"properties": {"x": {"$ref": "#definitions"}}}`, drafts.ErrBadRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := drafts.Dereference(mustLoad(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDereference_SharedTargetsAreNotCycles(t *testing.T) {
	t.Parallel()

	doc := mustLoad(t, `{
		"definitions": {"id": {"type": "integer"}},
		"properties": {"a": {"$ref": "#/definitions/id"}, "b": {"$ref": "#/definitions/id"}}
	}`)

	out, err := drafts.Dereference(doc)
	require.NoError(t, err)

	props := out.(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, props["a"], props["b"])
}

func TestDereference_NonStringRefIsKept(t *testing.T) {
	t.Parallel()

	doc := mustLoad(t, `{"properties": {"$ref": {"type": "string"}}}`)

	out, err := drafts.Dereference(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}
