package drafts

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/schemaevo/pkg/cache"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/result"
)

// Draft identifies a JSON Schema meta-schema.
type Draft string

// Supported drafts, oldest first.
const (
	Draft4      Draft = "draft-04"
	Draft6      Draft = "draft-06"
	Draft7      Draft = "draft-07"
	Draft201909 Draft = "draft-2019-09"
	Draft202012 Draft = "draft-2020-12"
)

// Pass names one evaluation of a document.
type Pass string

// Evaluation passes.
const (
	// Direct evaluates the document as loaded.
	Direct Pass = "direct"
	// Refs evaluates the document with local references expanded.
	Refs Pass = "refs"
)

// Failure kinds recorded by the classifier.
const (
	KindSchemaError = "SchemaError"
	KindReadError   = "ReadError"
	KindDecodeError = "DecodeError"
	KindDerefError  = "DerefError"
	KindPanic       = "Panic"
)

// ErrUnknownDraft is returned for a draft name outside AllDrafts.
var ErrUnknownDraft = errors.New("unknown draft")

// AllDrafts returns every supported draft, oldest first.
func AllDrafts() []Draft {
	return []Draft{Draft4, Draft6, Draft7, Draft201909, Draft202012}
}

// ParseDraft validates a draft name.
func ParseDraft(name string) (Draft, error) {
	d := Draft(name)
	if !slices.Contains(AllDrafts(), d) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDraft, name)
	}

	return d, nil
}

// Check is the outcome of validating one document against one draft.
type Check struct {
	Valid   bool            `json:"valid"             yaml:"valid"`
	Failure *result.Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Classification is the draft classification of one file version.
type Classification struct {
	Version      *lineage.FileVersion     `json:"version"                 yaml:"version"`
	SchemaTag    string                   `json:"schema_tag,omitempty"    yaml:"schema_tag,omitempty"`
	Encoding     string                   `json:"encoding,omitempty"      yaml:"encoding,omitempty"`
	LoadFailure  *result.Failure          `json:"load_failure,omitempty"  yaml:"load_failure,omitempty"`
	DerefFailure *result.Failure          `json:"deref_failure,omitempty" yaml:"deref_failure,omitempty"`
	Passes       map[Pass]map[Draft]Check `json:"passes,omitempty"        yaml:"passes,omitempty"`
}

// Valid reports whether the draft accepted the document in pass.
func (c *Classification) Valid(pass Pass, draft Draft) bool {
	return c.Passes[pass][draft].Valid
}

// ValidDrafts returns the drafts that accepted the document in pass, oldest first.
func (c *Classification) ValidDrafts(pass Pass) []Draft {
	var valid []Draft

	for _, d := range AllDrafts() {
		if c.Valid(pass, d) {
			valid = append(valid, d)
		}
	}

	return valid
}

type validator func(doc any) error

// Classifier validates documents against draft meta-schemas. Meta-schemas
// are compiled once; a Classifier is safe for concurrent use.
type Classifier struct {
	drafts     []Draft
	validators map[Draft]validator
	cache      *cache.LRU[uint64, Classification]
}

// NewClassifier compiles the meta-schemas of drafts. No drafts means AllDrafts.
func NewClassifier(drafts ...Draft) (*Classifier, error) {
	if len(drafts) == 0 {
		drafts = AllDrafts()
	}

	c := &Classifier{drafts: drafts, validators: make(map[Draft]validator, len(drafts))}

	for _, d := range drafts {
		v, err := compile(d)
		if err != nil {
			return nil, fmt.Errorf("compile %s meta-schema: %w", d, err)
		}

		c.validators[d] = v
	}

	return c, nil
}

// WithCache makes ClassifyFile reuse classifications of identical content.
// Cached classifications share their maps and must not be modified.
func (c *Classifier) WithCache(lru *cache.LRU[uint64, Classification]) *Classifier {
	c.cache = lru

	return c
}

// Drafts returns the drafts the classifier checks.
func (c *Classifier) Drafts() []Draft {
	return slices.Clone(c.drafts)
}

func compile(d Draft) (validator, error) {
	switch d {
	case Draft4, Draft6, Draft7:
		return compileLegacy("http://json-schema.org/" + string(d) + "/schema")
	case Draft201909:
		return compileModern(jsonschema.Draft2019)
	case Draft202012:
		return compileModern(jsonschema.Draft2020)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDraft, d)
	}
}

func compileLegacy(url string) (validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader(url))
	if err != nil {
		return nil, err
	}

	return func(doc any) error {
		res, validateErr := schema.Validate(gojsonschema.NewGoLoader(doc))
		if validateErr != nil {
			return validateErr
		}

		if res.Valid() {
			return nil
		}

		messages := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			messages = append(messages, e.String())
		}

		return &SchemaError{Messages: messages}
	}, nil
}

func compileModern(draft *jsonschema.Draft) (validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = draft

	schema, err := compiler.Compile(draft.URL())
	if err != nil {
		return nil, err
	}

	return func(doc any) error {
		validateErr := schema.Validate(doc)

		var verr *jsonschema.ValidationError
		if errors.As(validateErr, &verr) {
			return &SchemaError{Messages: []string{verr.Error()}}
		}

		return validateErr
	}, nil
}

// SchemaError reports a document rejected by a meta-schema.
type SchemaError struct {
	Messages []string
}

// Error implements error.
func (e *SchemaError) Error() string {
	return strings.Join(e.Messages, "\n")
}

// Kind names the failure kind.
func (e *SchemaError) Kind() string {
	return KindSchemaError
}

// Check validates doc against one draft. Validator errors and panics are
// recorded in the returned Check.
func (c *Classifier) Check(draft Draft, doc any) (check Check) {
	v, ok := c.validators[draft]
	if !ok {
		return Check{Failure: result.NewFailure(fmt.Errorf("%w: %q", ErrUnknownDraft, draft))}
	}

	defer func() {
		if r := recover(); r != nil {
			check = Check{Failure: &result.Failure{Kind: KindPanic, Message: fmt.Sprint(r)}}
		}
	}()

	err := v(doc)
	if err != nil {
		return Check{Failure: result.NewFailure(err)}
	}

	return Check{Valid: true}
}

// CheckAll validates doc against every draft of the classifier.
func (c *Classifier) CheckAll(doc any) map[Draft]Check {
	checks := make(map[Draft]Check, len(c.drafts))
	for _, d := range c.drafts {
		checks[d] = c.Check(d, doc)
	}

	return checks
}

// Valid reports whether every given draft accepts doc.
func (c *Classifier) Valid(doc any, drafts ...Draft) bool {
	for _, d := range drafts {
		if !c.Check(d, doc).Valid {
			return false
		}
	}

	return true
}

// ClassifyFile loads the file at path and classifies it.
func (c *Classifier) ClassifyFile(path string) Classification {
	content, err := os.ReadFile(path)
	if err != nil {
		return Classification{LoadFailure: &result.Failure{
			Kind:    KindReadError,
			Message: fmt.Errorf("%w: %w", ErrRead, err).Error(),
		}}
	}

	return c.ClassifyContent(content)
}

// ClassifyContent decodes content and classifies it. With a cache, content
// seen before is not classified again.
func (c *Classifier) ClassifyContent(content []byte) Classification {
	if c.cache == nil {
		return c.classifyContent(content)
	}

	key := xxhash.Sum64(content)

	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	out := c.classifyContent(content)
	c.cache.Put(key, out, int64(len(content)))

	return out
}

func (c *Classifier) classifyContent(content []byte) Classification {
	doc, err := Load(content)
	if err != nil {
		return Classification{LoadFailure: &result.Failure{Kind: KindDecodeError, Message: err.Error()}}
	}

	return c.Classify(doc)
}

// Classify runs the direct pass and, when at least one draft accepted the
// document, the refs pass over the dereferenced document.
func (c *Classifier) Classify(doc *Document) Classification {
	out := Classification{
		SchemaTag: SchemaTag(doc.Value),
		Encoding:  doc.Encoding,
		Passes:    map[Pass]map[Draft]Check{},
	}

	direct := c.CheckAll(doc.Value)
	out.Passes[Direct] = direct

	if !anyValid(direct) {
		return out
	}

	expanded, err := Dereference(doc.Value)
	if err != nil {
		out.DerefFailure = &result.Failure{Kind: KindDerefError, Message: err.Error()}

		return out
	}

	out.Passes[Refs] = c.CheckAll(expanded)

	return out
}

func anyValid(checks map[Draft]Check) bool {
	for _, c := range checks {
		if c.Valid {
			return true
		}
	}

	return false
}
