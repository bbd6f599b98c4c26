package drafts

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonpointer"
)

// Dereferencing errors.
var (
	ErrRemoteRef   = errors.New("reference outside the document")
	ErrCyclicRef   = errors.New("cyclic reference")
	ErrBadRef      = errors.New("unresolvable reference")
	ErrDerefTooBig = errors.New("dereferenced document too large")
)

const maxDerefNodes = 1 << 20

// Dereference returns a copy of doc in which every object holding a "$ref"
// string is replaced by the (recursively dereferenced) value it points to.
// Only references into the same document ("#" followed by a JSON pointer)
// are supported; sibling keys of "$ref" are dropped.
func Dereference(doc any) (any, error) {
	d := &dereferencer{root: doc}

	return d.walk(doc, nil)
}

type dereferencer struct {
	root  any
	nodes int
}

func (d *dereferencer) walk(node any, active []string) (any, error) {
	d.nodes++
	if d.nodes > maxDerefNodes {
		return nil, fmt.Errorf("%w: more than %d nodes", ErrDerefTooBig, maxDerefNodes)
	}

	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			return d.follow(ref, active)
		}

		out := make(map[string]any, len(v))

		for key, child := range v {
			resolved, err := d.walk(child, active)
			if err != nil {
				return nil, err
			}

			out[key] = resolved
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, child := range v {
			resolved, err := d.walk(child, active)
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	default:
		return v, nil
	}
}

func (d *dereferencer) follow(ref string, active []string) (any, error) {
	for _, seen := range active {
		if seen == ref {
			return nil, fmt.Errorf("%w: %s", ErrCyclicRef, strings.Join(append(active, ref), " -> "))
		}
	}

	fragment, ok := strings.CutPrefix(ref, "#")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRemoteRef, ref)
	}

	fragment, err := url.PathUnescape(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadRef, ref, err)
	}

	pointer, err := gojsonpointer.NewJsonPointer(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadRef, ref, err)
	}

	target, _, err := pointer.Get(d.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrBadRef, ref, err)
	}

	return d.walk(target, append(active, ref))
}
