package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/symbol"
)

// Comparison errors.
var (
	ErrDifferentPairSets = errors.New("result files compare different version pairs")
	ErrDuplicatePair     = errors.New("version pair occurs twice in a result file")
)

var symbolColors = map[symbol.Symbol]*color.Color{
	symbol.Equal:        color.New(color.FgGreen),
	symbol.Subset:       color.New(color.FgCyan),
	symbol.Superset:     color.New(color.FgBlue),
	symbol.Incomparable: color.New(color.FgYellow),
	symbol.Failed:       color.New(color.FgRed),
}

// Glyph returns the coloured glyph of s. Colour is dropped when the output
// is not a terminal.
func Glyph(s symbol.Symbol) string {
	c, ok := symbolColors[s]
	if !ok {
		return s.Glyph()
	}

	return c.Sprint(s.Glyph())
}

// SymbolStats summarizes containment results by symbol.
type SymbolStats struct {
	Pairs int `json:"pairs" yaml:"pairs"`
	// Counts maps symbol names to the number of pairs classified as such.
	Counts map[string]int `json:"counts" yaml:"counts"`
	// FailureKinds counts the failure kinds of indeterminate checks.
	FailureKinds   map[string]int `json:"failure_kinds"  yaml:"failure_kinds"`
	Unclassifiable int            `json:"unclassifiable" yaml:"unclassifiable"`
	CheckTime      time.Duration  `json:"check_time_ns"  yaml:"check_time_ns"`
}

// Symbols computes the symbol statistics of containment entries.
func Symbols(entries []containment.Entry) *SymbolStats {
	s := &SymbolStats{Counts: map[string]int{}, FailureKinds: map[string]int{}}

	for _, e := range entries {
		for i := range e.Results {
			p := &e.Results[i]
			s.Pairs++
			s.CheckTime += p.LeftInRight.Duration() + p.RightInLeft.Duration()

			for _, v := range []containment.Verdict{p.LeftInRight, p.RightInLeft} {
				if v.Failure != nil {
					s.FailureKinds[v.Failure.Kind]++
				}
			}

			sym, err := symbol.Of(p)
			if err != nil {
				s.Unclassifiable++

				continue
			}

			s.Counts[sym.String()]++
		}
	}

	return s
}

// Tables implements Tabular.
func (s *SymbolStats) Tables() []table.Writer {
	counts := newTable("Symbols", table.Row{"", "Symbol", "Pairs", "Share"})

	for _, sym := range symbol.All() {
		n := s.Counts[sym.String()]
		counts.AppendRow(table.Row{Glyph(sym), sym, count(n), percent(n, s.Pairs)})
	}

	footer := table.Row{"", "Total", count(s.Pairs), ""}
	if s.Unclassifiable > 0 {
		footer = table.Row{"", "Total (unclassifiable " + count(s.Unclassifiable) + ")", count(s.Pairs), ""}
	}

	counts.AppendFooter(footer)
	counts.SetCaption("total check time %s", s.CheckTime.Round(time.Millisecond))

	kinds := newTable("Failure kinds", table.Row{"Kind", "Checks"})
	for _, k := range byCount(s.FailureKinds) {
		kinds.AppendRow(table.Row{k, count(s.FailureKinds[k])})
	}

	return []table.Writer{counts, kinds}
}

type pairKey struct {
	Left  lineage.VersionKey
	Right lineage.VersionKey
}

// PairChange is one version pair classified differently by two result files.
type PairChange struct {
	Left  lineage.VersionKey `json:"left"  yaml:"left"`
	Right lineage.VersionKey `json:"right" yaml:"right"`
	From  symbol.Symbol      `json:"from"  yaml:"from"`
	To    symbol.Symbol      `json:"to"    yaml:"to"`
}

// SymbolChange counts pairs that moved from one symbol to another.
type SymbolChange struct {
	From  symbol.Symbol `json:"from"  yaml:"from"`
	To    symbol.Symbol `json:"to"    yaml:"to"`
	Count int           `json:"count" yaml:"count"`
}

// Comparison is the symbol-by-symbol comparison of two containment result
// files over the same version pairs.
type Comparison struct {
	Total int `json:"total" yaml:"total"`
	// Same maps symbol names to pairs both files classified alike.
	Same      map[string]int `json:"same"            yaml:"same"`
	Different []SymbolChange `json:"different"       yaml:"different"`
	Pairs     []PairChange   `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}

// Compare classifies every pair of both result sets and compares the
// symbols. Both sets must cover exactly the same version pairs. With details
// the differing pairs are listed.
func Compare(a, b []containment.Entry, details bool) (*Comparison, error) {
	left, err := groupSymbols(a)
	if err != nil {
		return nil, fmt.Errorf("first result file: %w", err)
	}

	right, err := groupSymbols(b)
	if err != nil {
		return nil, fmt.Errorf("second result file: %w", err)
	}

	if len(left) != len(right) {
		return nil, fmt.Errorf("%w: %d and %d pairs", ErrDifferentPairSets, len(left), len(right))
	}

	cmp := &Comparison{Total: len(left), Same: map[string]int{}}
	moved := map[[2]symbol.Symbol]int{}

	for key, from := range left {
		to, ok := right[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s missing in second file", ErrDifferentPairSets,
				key.Left.NewPath, key.Left.Revision)
		}

		if from == to {
			cmp.Same[from.String()]++

			continue
		}

		moved[[2]symbol.Symbol{from, to}]++

		if details {
			cmp.Pairs = append(cmp.Pairs, PairChange{Left: key.Left, Right: key.Right, From: from, To: to})
		}
	}

	for k, n := range moved {
		cmp.Different = append(cmp.Different, SymbolChange{From: k[0], To: k[1], Count: n})
	}

	sort.Slice(cmp.Different, func(i, j int) bool {
		if cmp.Different[i].From != cmp.Different[j].From {
			return cmp.Different[i].From < cmp.Different[j].From
		}

		return cmp.Different[i].To < cmp.Different[j].To
	})

	sort.Slice(cmp.Pairs, func(i, j int) bool {
		return lessKey(cmp.Pairs[i].Left, cmp.Pairs[j].Left) ||
			cmp.Pairs[i].Left == cmp.Pairs[j].Left && lessKey(cmp.Pairs[i].Right, cmp.Pairs[j].Right)
	})

	return cmp, nil
}

func lessKey(a, b lineage.VersionKey) bool {
	if a.NewPath != b.NewPath {
		return a.NewPath < b.NewPath
	}

	if a.OldPath != b.OldPath {
		return a.OldPath < b.OldPath
	}

	return a.Revision < b.Revision
}

func groupSymbols(entries []containment.Entry) (map[pairKey]symbol.Symbol, error) {
	group := map[pairKey]symbol.Symbol{}

	for _, e := range entries {
		for i := range e.Results {
			p := &e.Results[i]
			key := pairKey{Left: p.Left.Key(), Right: p.Right.Key()}

			if _, exists := group[key]; exists {
				return nil, fmt.Errorf("%w: %s at %s and %s", ErrDuplicatePair,
					p.Left.Path(), p.Left.Revision, p.Right.Revision)
			}

			sym, err := symbol.Of(p)
			if err != nil {
				sym = symbol.Failed
			}

			group[key] = sym
		}
	}

	return group, nil
}

// Tables implements Tabular.
func (c *Comparison) Tables() []table.Writer {
	same := newTable("Equal symbols", table.Row{"", "Symbol", "Pairs", "Share"})

	for _, sym := range symbol.All() {
		if n := c.Same[sym.String()]; n > 0 {
			same.AppendRow(table.Row{Glyph(sym), sym, count(n), percent(n, c.Total)})
		}
	}

	same.AppendFooter(table.Row{"", "Total", count(c.Total), ""})

	diff := newTable("Different symbols", table.Row{"First", "Second", "Pairs", "Share"})
	for _, d := range c.Different {
		diff.AppendRow(table.Row{Glyph(d.From), Glyph(d.To), count(d.Count), percent(d.Count, c.Total)})
	}

	tables := []table.Writer{same, diff}

	if len(c.Pairs) > 0 {
		pairs := newTable("Differing pairs", table.Row{"Path", "Left revision", "Right revision", "First", "Second"})
		for _, p := range c.Pairs {
			path := p.Left.NewPath
			if path == "" {
				path = p.Left.OldPath
			}

			pairs.AppendRow(table.Row{path, p.Left.Revision, p.Right.Revision, Glyph(p.From), Glyph(p.To)})
		}

		tables = append(tables, pairs)
	}

	return tables
}
