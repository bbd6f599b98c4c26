package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
	"github.com/Sumatoshi-tech/schemaevo/pkg/result"
	"github.com/Sumatoshi-tech/schemaevo/pkg/symbol"
)

func v(rev string, kind lineage.ChangeKind, depth int, path string) *lineage.FileVersion {
	return &lineage.FileVersion{Revision: rev, OldPath: path, NewPath: path, Kind: kind, Depth: depth}
}

func sampleLineage() *lineage.Lineage {
	return &lineage.Lineage{
		Live: []*lineage.VersionedFile{
			{Path: "a.json", History: []*lineage.FileVersion{
				v("r1", lineage.Added, 1, "a.json"),
				v("r2", lineage.Modified, 2, "a.json"),
				v("r3", lineage.Modified, 3, "a.json"),
			}},
			{Path: "b.json", History: []*lineage.FileVersion{v("r2", lineage.Added, 2, "b.json")}},
		},
		Deleted: []*lineage.VersionedFile{
			{Path: "c.json", History: []*lineage.FileVersion{
				v("r1", lineage.Added, 1, "c.json"),
				v("r4", lineage.Deleted, 4, "c.json"),
			}},
		},
	}
}

func TestLineageStats(t *testing.T) {
	t.Parallel()

	s := report.Lineage(sampleLineage())

	assert.Equal(t, 2, s.LiveFiles)
	assert.Equal(t, 1, s.DeletedFiles)
	assert.Equal(t, 4, s.LiveVersions)
	assert.Equal(t, 2, s.DeletedVersions)
	assert.Equal(t, 2, s.LivePairs)
	assert.Equal(t, 1, s.DeletedPairs)
	assert.Equal(t, 4, s.DistinctDepths)
	assert.Equal(t, map[int]int{3: 1, 1: 1}, s.HistoryLengths)
	assert.Equal(t, map[string]int{"added": 2, "modified": 2}, s.ChangeKinds)
	assert.Equal(t, report.FileSummary{Path: "a.json", Versions: 3, MinDepth: 1, MaxDepth: 3}, s.Live[0])
}

func TestRender_Formats(t *testing.T) {
	t.Parallel()

	s := report.Lineage(sampleLineage())

	var tbl bytes.Buffer
	require.NoError(t, report.Render(&tbl, report.FormatTable, s))
	assert.Contains(t, tbl.String(), "Successive pairs")
	assert.Contains(t, tbl.String(), "c.json")

	var js bytes.Buffer
	require.NoError(t, report.Render(&js, report.FormatJSON, s))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.InDelta(t, 2, decoded["live_files"], 0)

	var ym bytes.Buffer
	require.NoError(t, report.Render(&ym, report.FormatYAML, s))

	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, 1, fromYAML["deleted_files"])

	require.ErrorIs(t, report.Render(&js, "csv", s), report.ErrUnknownFormat)
}

func check(valid bool, kind string) drafts.Check {
	if valid {
		return drafts.Check{Valid: true}
	}

	return drafts.Check{Failure: &result.Failure{Kind: kind, Message: "x"}}
}

func TestDraftStats(t *testing.T) {
	t.Parallel()

	allValid := map[drafts.Draft]drafts.Check{
		drafts.Draft4: check(true, ""), drafts.Draft6: check(true, ""), drafts.Draft7: check(true, ""),
	}
	only7 := map[drafts.Draft]drafts.Check{
		drafts.Draft4: check(false, drafts.KindSchemaError), drafts.Draft6: check(false, drafts.KindSchemaError),
		drafts.Draft7: check(true, ""),
	}

	entries := []drafts.Entry{{
		File: &lineage.VersionedFile{Path: "a.json"},
		Results: []drafts.Classification{
			{SchemaTag: "http://json-schema.org/draft-04/schema#", Encoding: "utf-8",
				Passes: map[drafts.Pass]map[drafts.Draft]drafts.Check{drafts.Direct: allValid, drafts.Refs: allValid}},
			{Encoding: "utf-8", DerefFailure: &result.Failure{Kind: drafts.KindDerefError},
				Passes: map[drafts.Pass]map[drafts.Draft]drafts.Check{drafts.Direct: only7}},
			{LoadFailure: &result.Failure{Kind: drafts.KindDecodeError}},
		},
	}}

	s := report.Drafts(entries)

	assert.Equal(t, 3, s.Versions)
	assert.Equal(t, 1, s.LoadFailures)
	assert.Equal(t, 1, s.DerefFailures)

	direct := s.Passes[drafts.Direct]
	require.NotNil(t, direct)
	assert.Equal(t, 2, direct.Evaluated)
	assert.Equal(t, 2, direct.AnyValid)
	assert.Equal(t, 1, direct.AllLegacyValid)
	assert.Equal(t, report.DraftCount{Valid: 1, Invalid: 1}, *direct.Drafts[drafts.Draft4])
	assert.Equal(t, report.DraftCount{Valid: 2}, *direct.Drafts[drafts.Draft7])
	assert.Equal(t, map[string]int{drafts.KindSchemaError: 2}, direct.FailureKinds)
	assert.Equal(t, 1, s.Passes[drafts.Refs].Evaluated)
	assert.Equal(t, map[string]int{"http://json-schema.org/draft-04/schema#": 1, "(none)": 1}, s.SchemaTags)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatTable, s))
	assert.Contains(t, buf.String(), "draft-07")
}

func verdict(o containment.Outcome) containment.Verdict {
	start := time.Unix(100, 0)

	return containment.Verdict{Outcome: o, Start: start, End: start.Add(time.Second)}
}

func pair(left, right *lineage.FileVersion, a, b containment.Outcome) containment.Pair {
	return containment.Pair{Left: left, Right: right, LeftInRight: verdict(a), RightInLeft: verdict(b)}
}

func containmentEntries(second containment.Outcome) []containment.Entry {
	h := sampleLineage().Live[0].History

	return []containment.Entry{{
		File: &lineage.VersionedFile{Path: "a.json", History: h},
		Results: []containment.Pair{
			pair(h[0], h[1], containment.Contained, containment.Contained),
			pair(h[1], h[2], containment.Contained, second),
		},
	}}
}

func TestSymbolStats(t *testing.T) {
	t.Parallel()

	entries := containmentEntries(containment.NotContained)
	entries[0].Results[0].RightInLeft = containment.Failed("RangeError:", "boom", time.Unix(0, 0), time.Unix(2, 0))

	s := report.Symbols(entries)

	assert.Equal(t, 2, s.Pairs)
	assert.Equal(t, map[string]int{symbol.Failed.String(): 1, symbol.Subset.String(): 1}, s.Counts)
	assert.Equal(t, map[string]int{"RangeError:": 1}, s.FailureKinds)
	assert.Equal(t, 5*time.Second, s.CheckTime)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatTable, s))
	assert.Contains(t, buf.String(), symbol.Subset.Glyph())
	assert.Contains(t, buf.String(), "50.0%")
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := containmentEntries(containment.NotContained)
	b := containmentEntries(containment.Contained)

	cmp, err := report.Compare(a, b, true)
	require.NoError(t, err)

	assert.Equal(t, 2, cmp.Total)
	assert.Equal(t, map[string]int{symbol.Equal.String(): 1}, cmp.Same)
	assert.Equal(t, []report.SymbolChange{{From: symbol.Subset, To: symbol.Equal, Count: 1}}, cmp.Different)
	require.Len(t, cmp.Pairs, 1)
	assert.Equal(t, "r2", cmp.Pairs[0].Left.Revision)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatJSON, cmp))
	assert.Contains(t, buf.String(), `"from": "subset"`)
}

func TestCompare_DifferentPairSets(t *testing.T) {
	t.Parallel()

	a := containmentEntries(containment.NotContained)
	b := containmentEntries(containment.NotContained)
	b[0].Results = b[0].Results[:1]

	_, err := report.Compare(a, b, false)
	require.ErrorIs(t, err, report.ErrDifferentPairSets)

	self := containmentEntries(containment.NotContained)
	h := self[0].File.History
	self[0].Results[1] = pair(h[1], h[1], containment.Contained, containment.Contained)

	_, err = report.Compare(a, self, false)
	require.ErrorIs(t, err, report.ErrDifferentPairSets)

	dup := containmentEntries(containment.NotContained)
	dup[0].Results[1] = dup[0].Results[0]

	_, err = report.Compare(dup, a, false)
	require.ErrorIs(t, err, report.ErrDuplicatePair)
}

func TestFilterStats(t *testing.T) {
	t.Parallel()

	l := sampleLineage()
	vf := filter.NewVersionFilter("draft4", []lineage.VersionKey{
		l.Live[0].History[1].Key(),
		l.Deleted[0].History[0].Key(),
	})

	s := report.Filter(vf, l, 0)

	assert.Equal(t, 6, s.Versions)
	assert.Equal(t, 2, s.Rejected)
	require.Len(t, s.Files, 2)
	assert.Equal(t, report.FilteredFile{Path: "a.json", Before: 3, After: 2, Removed: []string{"2#r2"}}, s.Files[0])

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.FormatTable, s))
	assert.Contains(t, buf.String(), "1#r1")
}

func TestShow(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	file := &lineage.VersionedFile{Path: "s.json", History: []*lineage.FileVersion{
		v("r1", lineage.Added, 1, "s.json"),
		v("r2", lineage.Modified, 2, "s.json"),
		v("r3", lineage.Deleted, 3, "s.json"),
	}}
	file.ResolveLocations(root)

	contents := []string{"{\n  \"type\": \"string\"\n}\n", "{\n  \"type\": \"integer\"\n}\n"}
	for i, content := range contents {
		loc := file.History[i].Location
		require.NoError(t, os.MkdirAll(filepath.Dir(loc), 0o755))
		require.NoError(t, os.WriteFile(loc, []byte(content), 0o600))
	}

	pairs := []containment.Pair{pair(file.History[0], file.History[1], containment.NotContained, containment.Contained)}

	var buf bytes.Buffer
	require.NoError(t, report.Show(&buf, file, pairs))

	out := buf.String()
	assert.Contains(t, out, "=== 1#r1 added s.json")
	assert.Contains(t, out, "=== 3#r3 deleted s.json")
	assert.Contains(t, out, "superset")
	assert.Contains(t, out, `-  "type": "string"`)
	assert.Contains(t, out, `+  "type": "integer"`)
	assert.Equal(t, 1, strings.Count(out, `+  "type": "string"`))
}

func TestLineDiff(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.WriteLineDiff(&buf, report.LineDiff("a\nb\n", "a\nc\n")))

	assert.Contains(t, buf.String(), " a")
	assert.Contains(t, buf.String(), "-b")
	assert.Contains(t, buf.String(), "+c")
}
