package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/schemaevo/cmd/schemaevo/commands"
	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

// workspace is a clone output directory with a saved lineage of one file.
type workspace struct {
	root    string
	globals *commands.Globals
	file    *lineage.VersionedFile
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	root := t.TempDir()

	cfgPath := filepath.Join(root, "schemaevo.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  dir: "+root+"\nlogging:\n  level: error\n"), 0o600))

	contents := []string{
		`{"type": "object", "properties": {"a": {"type": "string"}}}`,
		`{"type": "object", "properties": {"a": {"$ref": "#/definitions/s"}}, "definitions": {"s": {"type": "string"}}}`,
		`{"type": "object", "propertyNames": {"maxLength": 3}}`,
	}
	kinds := []lineage.ChangeKind{lineage.Added, lineage.Modified, lineage.Modified}

	file := &lineage.VersionedFile{Path: "s.json", AddedAt: lineage.Marker{Depth: 1, Revision: "a"}}

	for i, content := range contents {
		v := &lineage.FileVersion{
			Revision: string(rune('a' + i)),
			OldPath:  "s.json",
			NewPath:  "s.json",
			Kind:     kinds[i],
			Depth:    i + 1,
		}
		v.ResolveLocation(filepath.Join(root, "commits"))

		require.NoError(t, os.MkdirAll(filepath.Dir(v.Location), 0o755))
		require.NoError(t, os.WriteFile(v.Location, []byte(content), 0o600))

		file.History = append(file.History, v)
	}

	p, err := persist.NewPersister[lineage.Lineage](filepath.Join(root, "lineage.json"))
	require.NoError(t, err)
	require.NoError(t, p.Save(&lineage.Lineage{Live: []*lineage.VersionedFile{file}}))

	return &workspace{root: root, globals: &commands.Globals{ConfigPath: cfgPath}, file: file}
}

func (w *workspace) writeResults(t *testing.T, name string, outcomes ...containment.Outcome) string {
	t.Helper()

	start := time.Unix(1700000000, 0)
	entry := containment.Entry{File: w.file}

	for i := 0; i+1 < len(w.file.History); i++ {
		entry.Results = append(entry.Results, containment.Pair{
			Left:        w.file.History[i],
			Right:       w.file.History[i+1],
			LeftInRight: containment.Verdict{Outcome: outcomes[2*i], Start: start, End: start.Add(time.Second)},
			RightInLeft: containment.Verdict{Outcome: outcomes[2*i+1], Start: start, End: start.Add(time.Second)},
		})
	}

	path := filepath.Join(w.root, name)

	p, err := persist.NewPersister[[]containment.Entry](path)
	require.NoError(t, err)
	require.NoError(t, persist.Append(p, entry))

	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, commands.NewStatsCommand(w.globals), w.root, "--format", "json")
	require.NoError(t, err)

	var stats report.LineageStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.LiveFiles)
	assert.Equal(t, 2, stats.LivePairs)
	assert.Equal(t, 3, stats.DistinctDepths)
}

func TestDraftsCommand(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, commands.NewDraftsCommand(w.globals), w.root, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Draft classification")

	_, err = os.Stat(filepath.Join(w.root, "drafts.json"))
	require.NoError(t, err)

	out, err = execute(t, commands.NewStatsCommand(w.globals), w.root,
		"--drafts", filepath.Join(w.root, "drafts.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "draft-2020-12")
}

func TestFilterCommand(t *testing.T) {
	w := newWorkspace(t)

	_, err := execute(t, commands.NewFilterCommand(w.globals), w.root, filter.Draft4)
	require.NoError(t, err)

	vf, err := filter.Load(filepath.Join(w.root, "filter-draft4.json"))
	require.NoError(t, err)
	assert.Equal(t, []lineage.VersionKey{w.file.History[2].Key()}, vf.Invalid)

	_, err = execute(t, commands.NewFilterCommand(w.globals), w.root, "draft5")
	require.ErrorIs(t, err, filter.ErrUnknownFilter)
}

func TestSymbolsAndCompareCommands(t *testing.T) {
	w := newWorkspace(t)

	a := w.writeResults(t, "a.json",
		containment.NotContained, containment.Contained, containment.Contained, containment.Contained)
	b := w.writeResults(t, "b.json",
		containment.NotContained, containment.Contained, containment.Indeterminate, containment.Contained)

	out, err := execute(t, commands.NewSymbolsCommand(w.globals), a)
	require.NoError(t, err)
	assert.Contains(t, out, "superset")

	out, err = execute(t, commands.NewCompareCommand(w.globals), a, b, "--format", "json")
	require.NoError(t, err)

	var cmp report.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	assert.Equal(t, 2, cmp.Total)
	assert.Equal(t, map[string]int{"superset": 1}, cmp.Same)
	require.Len(t, cmp.Different, 1)
	assert.Equal(t, 1, cmp.Different[0].Count)
}

func TestShowCommand(t *testing.T) {
	w := newWorkspace(t)

	results := w.writeResults(t, "a.json",
		containment.NotContained, containment.Contained, containment.Contained, containment.NotContained)

	out, err := execute(t, commands.NewShowCommand(w.globals), w.root, "s.json", "--results", results)
	require.NoError(t, err)
	assert.Contains(t, out, "=== 1#a added s.json")
	assert.Contains(t, out, "superset")
	assert.Contains(t, out, "subset")
	assert.Contains(t, out, `+{"type": "object", "propertyNames": {"maxLength": 3}}`)

	_, err = execute(t, commands.NewShowCommand(w.globals), w.root, "missing.json")
	require.ErrorIs(t, err, commands.ErrFileNotInLineage)
}

func TestConflictingVerbosity(t *testing.T) {
	w := newWorkspace(t)
	w.globals.Verbose = true
	w.globals.Quiet = true

	_, err := execute(t, commands.NewStatsCommand(w.globals), w.root)
	require.ErrorIs(t, err, commands.ErrConflictingVerbosity)
}
