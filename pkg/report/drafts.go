package report

import (
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
)

// untagged is the schema tag reported for documents without $schema.
const untagged = "(none)"

// DraftCount holds valid and invalid counts of one draft in one pass.
type DraftCount struct {
	Valid   int `json:"valid"   yaml:"valid"`
	Invalid int `json:"invalid" yaml:"invalid"`
}

// PassStats summarizes one evaluation pass.
type PassStats struct {
	// Evaluated counts versions the pass ran on.
	Evaluated int `json:"evaluated" yaml:"evaluated"`
	// AnyValid counts versions accepted by at least one draft.
	AnyValid int `json:"any_valid" yaml:"any_valid"`
	// AllLegacyValid counts versions accepted by draft-04, draft-06 and draft-07.
	AllLegacyValid int                          `json:"all_legacy_valid" yaml:"all_legacy_valid"`
	Drafts         map[drafts.Draft]*DraftCount `json:"drafts"           yaml:"drafts"`
	// FailureKinds counts failure kinds over every draft of the pass.
	FailureKinds map[string]int `json:"failure_kinds" yaml:"failure_kinds"`
}

// DraftStats summarizes draft classifications.
type DraftStats struct {
	Versions      int                        `json:"versions"       yaml:"versions"`
	LoadFailures  int                        `json:"load_failures"  yaml:"load_failures"`
	DerefFailures int                        `json:"deref_failures" yaml:"deref_failures"`
	Passes        map[drafts.Pass]*PassStats `json:"passes"         yaml:"passes"`
	SchemaTags    map[string]int             `json:"schema_tags"    yaml:"schema_tags"`
	Encodings     map[string]int             `json:"encodings"      yaml:"encodings"`
}

// Drafts computes the statistics of draft classification entries.
func Drafts(entries []drafts.Entry) *DraftStats {
	s := &DraftStats{
		Passes:     map[drafts.Pass]*PassStats{},
		SchemaTags: map[string]int{},
		Encodings:  map[string]int{},
	}

	legacy := []drafts.Draft{drafts.Draft4, drafts.Draft6, drafts.Draft7}

	for _, e := range entries {
		for i := range e.Results {
			c := &e.Results[i]
			s.Versions++

			if c.LoadFailure != nil {
				s.LoadFailures++

				continue
			}

			if c.DerefFailure != nil {
				s.DerefFailures++
			}

			tag := c.SchemaTag
			if tag == "" {
				tag = untagged
			}

			s.SchemaTags[tag]++
			s.Encodings[c.Encoding]++

			for pass, checks := range c.Passes {
				ps := s.pass(pass)
				ps.Evaluated++

				if len(c.ValidDrafts(pass)) > 0 {
					ps.AnyValid++
				}

				if allValid(c, pass, legacy) {
					ps.AllLegacyValid++
				}

				for draft, check := range checks {
					dc := ps.Drafts[draft]
					if dc == nil {
						dc = &DraftCount{}
						ps.Drafts[draft] = dc
					}

					if check.Valid {
						dc.Valid++

						continue
					}

					dc.Invalid++

					if check.Failure != nil {
						ps.FailureKinds[check.Failure.Kind]++
					}
				}
			}
		}
	}

	return s
}

func (s *DraftStats) pass(p drafts.Pass) *PassStats {
	ps := s.Passes[p]
	if ps == nil {
		ps = &PassStats{Drafts: map[drafts.Draft]*DraftCount{}, FailureKinds: map[string]int{}}
		s.Passes[p] = ps
	}

	return ps
}

func allValid(c *drafts.Classification, pass drafts.Pass, ds []drafts.Draft) bool {
	for _, d := range ds {
		if !c.Valid(pass, d) {
			return false
		}
	}

	return true
}

// Tables implements Tabular.
func (s *DraftStats) Tables() []table.Writer {
	totals := newTable("Draft classification", table.Row{"", "Versions"})
	totals.AppendRows([]table.Row{
		{"Classified", count(s.Versions)},
		{"Not loadable", count(s.LoadFailures)},
		{"Not dereferenceable", count(s.DerefFailures)},
	})

	passes := newTable("Passes", table.Row{"Pass", "Evaluated", "Any draft valid", "draft-04/06/07 valid"})
	perDraft := newTable("Drafts", table.Row{"Pass", "Draft", "Valid", "Invalid", "Valid %"})
	failures := newTable("Failure kinds", table.Row{"Pass", "Kind", "Count"})

	for _, pass := range []drafts.Pass{drafts.Direct, drafts.Refs} {
		ps, ok := s.Passes[pass]
		if !ok {
			continue
		}

		passes.AppendRow(table.Row{pass, count(ps.Evaluated), count(ps.AnyValid), count(ps.AllLegacyValid)})

		for _, d := range drafts.AllDrafts() {
			dc, ok := ps.Drafts[d]
			if !ok {
				continue
			}

			perDraft.AppendRow(table.Row{pass, d, count(dc.Valid), count(dc.Invalid), percent(dc.Valid, dc.Valid+dc.Invalid)})
		}

		for _, kind := range byCount(ps.FailureKinds) {
			failures.AppendRow(table.Row{pass, kind, count(ps.FailureKinds[kind])})
		}
	}

	tags := newTable("Schema tags", table.Row{"$schema", "Versions"})
	for _, tag := range byCount(s.SchemaTags) {
		tags.AppendRow(table.Row{tag, count(s.SchemaTags[tag])})
	}

	return []table.Writer{totals, passes, perDraft, failures, tags}
}

// byCount returns the keys of m by descending count, then name.
func byCount(m map[string]int) []string {
	keys := sortedKeys(m)

	sort.SliceStable(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}

		return strings.Compare(keys[i], keys[j]) < 0
	})

	return keys
}
