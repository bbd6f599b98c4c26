// Package filter selects schema versions by draft compatibility and keyword
// usage, and persists the versions a filter rejected.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
)

// ErrUnknownFilter is returned for a filter name outside Names.
var ErrUnknownFilter = errors.New("unknown filter")

// Predicate reports whether a decoded document passes a filter.
type Predicate func(doc any) bool

// And passes documents that pass every predicate.
func And(preds ...Predicate) Predicate {
	return func(doc any) bool {
		for _, p := range preds {
			if !p(doc) {
				return false
			}
		}

		return true
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(doc any) bool {
		return !p(doc)
	}
}

// ValidDrafts passes documents accepted by the meta-schema of every draft.
func ValidDrafts(c *drafts.Classifier, ds ...drafts.Draft) Predicate {
	return func(doc any) bool {
		return c.Valid(doc, ds...)
	}
}

// Dereferenced applies p to the document with local references expanded.
// Documents that cannot be dereferenced do not pass.
func Dereferenced(p Predicate) Predicate {
	return func(doc any) bool {
		expanded, err := drafts.Dereference(doc)
		if err != nil {
			return false
		}

		return p(expanded)
	}
}

// NotKeyword passes documents in which no object has the key keyword.
func NotKeyword(keyword string) Predicate {
	return func(doc any) bool {
		return !HasKey(doc, keyword)
	}
}

// post4Keywords were introduced after draft-04. exclusiveMinimum and
// exclusiveMaximum changed meaning in draft-06.
var post4Keywords = []string{
	"propertyNames",
	"contains",
	"const",
	"then",
	"else",
	"readOnly",
	"writeOnly",
	"exclusiveMinimum",
	"exclusiveMaximum",
}

// NoPost4Keywords passes documents that use no keyword introduced or changed
// after draft-04. Documents declaring draft-04 in $schema always pass.
func NoPost4Keywords() Predicate {
	return func(doc any) bool {
		if strings.Contains(drafts.SchemaTag(doc), "/draft-04/") {
			return true
		}

		return len(Post4Keywords(doc)) == 0
	}
}

// Post4Keywords returns the post-draft-04 keywords found in doc, sorted.
// "if" only counts together with "then" or "else".
func Post4Keywords(doc any) []string {
	var found []string

	for _, k := range post4Keywords {
		if HasKey(doc, k) {
			found = append(found, k)
		}
	}

	if HasKey(doc, "if") && (slices.Contains(found, "then") || slices.Contains(found, "else")) {
		found = append(found, "if")
	}

	sort.Strings(found)

	return found
}

// HasKey reports whether any object inside doc has key.
func HasKey(doc any, key string) bool {
	switch v := doc.(type) {
	case map[string]any:
		if _, ok := v[key]; ok {
			return true
		}

		for _, child := range v {
			if HasKey(child, key) {
				return true
			}
		}
	case []any:
		for _, child := range v {
			if HasKey(child, key) {
				return true
			}
		}
	}

	return false
}

// Named filter identifiers.
const (
	Draft4          = "draft4"
	Draft4Refs      = "draft4-refs"
	Draft4NoNot     = "draft4-no-not"
	Draft4RefsNoNot = "draft4-refs-no-not"
)

// Names returns the named filters.
func Names() []string {
	return []string{Draft4, Draft4Refs, Draft4NoNot, Draft4RefsNoNot}
}

// Named builds a named filter. Every draft-04 filter requires the document to
// validate against draft-04, draft-06 and draft-07 and to use no newer keyword.
func Named(name string, c *drafts.Classifier) (Predicate, error) {
	draft4 := And(ValidDrafts(c, drafts.Draft4, drafts.Draft6, drafts.Draft7), NoPost4Keywords())
	draft4Refs := And(draft4, Dereferenced(draft4))

	switch name {
	case Draft4:
		return draft4, nil
	case Draft4Refs:
		return draft4Refs, nil
	case Draft4NoNot:
		return And(draft4, NotKeyword("not")), nil
	case Draft4RefsNoNot:
		return And(draft4Refs, NotKeyword("not")), nil
	default:
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFilter, name, strings.Join(Names(), ", "))
	}
}
