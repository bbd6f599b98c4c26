// Package result holds the pieces shared by every per-file analysis: failure
// descriptors and the persisted (file, results) entries.
package result

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// Failure describes why an analysis could not produce a verdict. It is a
// value inside a result, never a returned error.
type Failure struct {
	Kind    string `json:"kind"    yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// String returns "kind: message".
func (f *Failure) String() string {
	if f == nil {
		return ""
	}

	return f.Kind + ": " + f.Message
}

type kinded interface {
	Kind() string
}

// NewFailure converts err into a Failure. The kind is err's own Kind() when
// it has one, otherwise its dynamic type name.
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}

	return &Failure{Kind: KindOf(err), Message: err.Error()}
}

// KindOf names the kind of err.
func KindOf(err error) string {
	if k, ok := err.(kinded); ok {
		return k.Kind()
	}

	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// Entry pairs a versioned file with the results computed for its history.
type Entry[T any] struct {
	File    *lineage.VersionedFile `json:"file"`
	Results []T                    `json:"results"`
}
