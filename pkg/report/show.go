package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/symbol"
)

var (
	insertColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
	headerColor = color.New(color.Bold)
)

// LineDiff computes a line-level diff between before and after.
func LineDiff(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)

	return dmp.DiffCharsToLines(diffs, lines)
}

// WriteLineDiff writes diffs with "+", "-" and " " line prefixes.
func WriteLineDiff(w io.Writer, diffs []diffmatchpatch.Diff) error {
	for _, d := range diffs {
		prefix, c := " ", (*color.Color)(nil)

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, c = "+", insertColor
		case diffmatchpatch.DiffDelete:
			prefix, c = "-", deleteColor
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range splitLines(d.Text) {
			text := prefix + line
			if c != nil {
				text = c.Sprint(text)
			}

			_, err := fmt.Fprintln(w, text)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}

	return strings.Split(text, "\n")
}

// Show writes the history of file: one header per version followed by the
// diff against the previous content version. Locations must be resolved.
// Pairs must reference the versions of file itself; the symbol of the pair
// ending at a version is appended to its header.
func Show(w io.Writer, file *lineage.VersionedFile, pairs []containment.Pair) error {
	incoming := make(map[*lineage.FileVersion]*containment.Pair, len(pairs))
	for i := range pairs {
		incoming[pairs[i].Right] = &pairs[i]
	}

	previous := ""

	for _, v := range file.History {
		marker := lineage.Marker{Depth: v.Depth, Revision: v.Revision}

		_, err := headerColor.Fprintf(w, "=== %s %s %s", marker, v.Kind, describePaths(v))
		if err != nil {
			return err
		}

		if p, ok := incoming[v]; ok {
			sym, symErr := symbol.Of(p)
			if symErr != nil {
				sym = symbol.Failed
			}

			fmt.Fprintf(w, " %s %s", Glyph(sym), sym)
		}

		fmt.Fprintln(w)

		if v.Kind == lineage.Deleted {
			continue
		}

		content, err := os.ReadFile(v.Location)
		if err != nil {
			return fmt.Errorf("read %s: %w", marker, err)
		}

		err = WriteLineDiff(w, LineDiff(previous, string(content)))
		if err != nil {
			return err
		}

		previous = string(content)
	}

	return nil
}

func describePaths(v *lineage.FileVersion) string {
	if v.OldPath != "" && v.NewPath != "" && v.OldPath != v.NewPath {
		return v.OldPath + " -> " + v.NewPath
	}

	return v.Path()
}
