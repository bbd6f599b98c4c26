package filter_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
)

var (
	classifierOnce sync.Once
	classifier     *drafts.Classifier
	classifierErr  error
)

func sharedClassifier(t *testing.T) *drafts.Classifier {
	t.Helper()

	classifierOnce.Do(func() {
		classifier, classifierErr = drafts.NewClassifier(drafts.Draft4, drafts.Draft6, drafts.Draft7)
	})
	require.NoError(t, classifierErr)

	return classifier
}

func doc(t *testing.T, content string) any {
	t.Helper()

	d, err := drafts.Load([]byte(content))
	require.NoError(t, err)

	return d.Value
}

func TestHasKey(t *testing.T) {
	t.Parallel()

	d := doc(t, `{"properties": {"a": {"anyOf": [{"not": {"type": "null"}}]}}}`)

	assert.True(t, filter.HasKey(d, "not"))
	assert.True(t, filter.HasKey(d, "a"))
	assert.False(t, filter.HasKey(d, "null"))
	assert.False(t, filter.HasKey("not", "not"))
}

func TestPost4Keywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", `{"type": "object"}`, nil},
		{"const nested", `{"items": [{"const": 1}]}`, []string{"const"}},
		{"if alone", `{"if": {"type": "string"}}`, nil},
		{"if then", `{"if": {}, "then": {}}`, []string{"if", "then"}},
		{"exclusive bounds", `{"exclusiveMinimum": true, "exclusiveMaximum": 3}`, []string{"exclusiveMaximum", "exclusiveMinimum"}},
		{"annotations", `{"properties": {"a": {"readOnly": true, "writeOnly": false}}}`, []string{"readOnly", "writeOnly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, filter.Post4Keywords(doc(t, tt.content)))
		})
	}
}

func TestNoPost4Keywords_Draft04TagIsExempt(t *testing.T) {
	t.Parallel()

	p := filter.NoPost4Keywords()

	assert.False(t, p(doc(t, `{"contains": {}}`)))
	assert.True(t, p(doc(t, `{"$schema": "http://json-schema.org/draft-04/schema#", "contains": {}}`)))
}

func TestCombinators(t *testing.T) {
	t.Parallel()

	yes := func(any) bool { return true }
	no := func(any) bool { return false }

	assert.True(t, filter.And()(nil))
	assert.True(t, filter.And(yes, yes)(nil))
	assert.False(t, filter.And(yes, no)(nil))
	assert.True(t, filter.Not(no)(nil))
	assert.False(t, filter.Not(yes)(nil))
}

func TestDereferenced(t *testing.T) {
	t.Parallel()

	noRefs := filter.Dereferenced(filter.NotKeyword("$ref"))

	assert.True(t, noRefs(doc(t, `{"definitions": {"a": {}}, "items": {"$ref": "#/definitions/a"}}`)))
	assert.False(t, noRefs(doc(t, `{"items": {"$ref": "#/definitions/missing"}}`)))
}

func TestNamed(t *testing.T) {
	t.Parallel()

	c := sharedClassifier(t)

	plain := `{"type": "object", "properties": {"a": {"type": "string"}}}`
	withNot := `{"not": {"type": "null"}}`
	badRef := `{"properties": {"a": {"$ref": "#/definitions/a"}}}`
	newer := `{"propertyNames": {"pattern": "^a"}}`

	tests := []struct {
		name string
		pass map[string]bool
	}{
		{filter.Draft4, map[string]bool{plain: true, withNot: true, badRef: true, newer: false}},
		{filter.Draft4Refs, map[string]bool{plain: true, withNot: true, badRef: false, newer: false}},
		{filter.Draft4NoNot, map[string]bool{plain: true, withNot: false, badRef: true, newer: false}},
		{filter.Draft4RefsNoNot, map[string]bool{plain: true, withNot: false, badRef: false, newer: false}},
	}

	for _, tt := range tests {
		p, err := filter.Named(tt.name, c)
		require.NoError(t, err)

		for content, want := range tt.pass {
			assert.Equal(t, want, p(doc(t, content)), "%s on %s", tt.name, content)
		}
	}

	_, err := filter.Named("draft5", c)
	require.ErrorIs(t, err, filter.ErrUnknownFilter)
	assert.Len(t, filter.Names(), 4)
}
