// Package symbol names the relation between two schema versions from the
// two directional containment verdicts of a pair.
package symbol

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
)

// Symbol is one element of the symbol lattice.
type Symbol int

// Symbols.
const (
	Equal Symbol = iota + 1
	Subset
	Superset
	Incomparable
	Failed
)

// ErrUnclassifiable is returned for verdict combinations outside the tri-state space.
var ErrUnclassifiable = errors.New("verdicts cannot be classified")

// ErrUnknownSymbol is returned by Parse.
var ErrUnknownSymbol = errors.New("unknown symbol")

var names = map[Symbol]string{
	Equal:        "equal",
	Subset:       "subset",
	Superset:     "superset",
	Incomparable: "incomparable",
	Failed:       "failed",
}

var glyphs = map[Symbol]string{
	Equal:        "≡",
	Subset:       "⊂",
	Superset:     "⊃",
	Incomparable: "∥",
	Failed:       "⟂",
}

// All returns every symbol in lattice order.
func All() []Symbol {
	return []Symbol{Equal, Subset, Superset, Incomparable, Failed}
}

// String returns the symbol name.
func (s Symbol) String() string {
	if name, ok := names[s]; ok {
		return name
	}

	return fmt.Sprintf("Symbol(%d)", int(s))
}

// Glyph returns the mathematical sign of the symbol.
func (s Symbol) Glyph() string {
	return glyphs[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Symbol) MarshalText() ([]byte, error) {
	if _, ok := names[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSymbol, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Parse accepts a symbol name or glyph.
func Parse(text string) (Symbol, error) {
	for _, s := range All() {
		if text == names[s] || text == glyphs[s] {
			return s, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, text)
}

// Classify maps the verdicts "left is a subset of right" and "right is a
// subset of left" to a symbol. Rules apply in order: both contained is Equal,
// any indeterminate side is Failed, then Subset, Superset and Incomparable.
func Classify(leftInRight, rightInLeft containment.Outcome) (Symbol, error) {
	switch {
	case leftInRight == containment.Contained && rightInLeft == containment.Contained:
		return Equal, nil
	case leftInRight == containment.Indeterminate || rightInLeft == containment.Indeterminate:
		return Failed, nil
	case leftInRight == containment.Contained && rightInLeft == containment.NotContained:
		return Subset, nil
	case leftInRight == containment.NotContained && rightInLeft == containment.Contained:
		return Superset, nil
	case leftInRight == containment.NotContained && rightInLeft == containment.NotContained:
		return Incomparable, nil
	}

	return 0, fmt.Errorf("%w: %q and %q", ErrUnclassifiable, leftInRight, rightInLeft)
}

// Of classifies a containment pair.
func Of(p *containment.Pair) (Symbol, error) {
	return Classify(p.LeftInRight.Outcome, p.RightInLeft.Outcome)
}
