// Package containment checks pairwise schema containment across the history
// of versioned files using pluggable checker back-ends.
package containment

import (
	"time"

	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/result"
)

// Outcome is the tri-state result of one directional subset check.
type Outcome string

// Outcomes.
const (
	Contained     Outcome = "true"
	NotContained  Outcome = "false"
	Indeterminate Outcome = "indeterminate"
)

// Verdict is the result of checking whether one schema is a subset of another.
type Verdict struct {
	Outcome Outcome         `json:"outcome"`
	Failure *result.Failure `json:"failure,omitempty"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
}

// Duration returns the time the check took.
func (v Verdict) Duration() time.Duration {
	return v.End.Sub(v.Start)
}

// Failed builds an indeterminate verdict.
func Failed(kind, message string, start, end time.Time) Verdict {
	return Verdict{
		Outcome: Indeterminate,
		Failure: &result.Failure{Kind: kind, Message: message},
		Start:   start,
		End:     end,
	}
}

// Pair is the bidirectional containment check of two versions of a file.
// Left and Right reference versions of the lineage; they are not owned.
type Pair struct {
	Left        *lineage.FileVersion `json:"left"`
	Right       *lineage.FileVersion `json:"right"`
	LeftInRight Verdict              `json:"left_in_right"`
	RightInLeft Verdict              `json:"right_in_left"`
}

// Entry is the persisted result of one file.
type Entry = result.Entry[Pair]
