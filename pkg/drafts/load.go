// Package drafts classifies JSON Schema documents by the drafts whose
// meta-schema accepts them, with and without local references expanded.
package drafts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Loading errors.
var (
	ErrRead         = errors.New("cannot read document")
	ErrTrailingData = errors.New("trailing data after JSON document")

	errInvalidUTF8 = errors.New("invalid utf-8")
)

// Document is a decoded JSON document together with the encoding it was read in.
type Document struct {
	Value    any
	Encoding string
}

// LoadFile reads and decodes a JSON document. Plain UTF-8 is tried first; if
// that fails the encoding is sniffed (byte order marks, otherwise
// windows-1252) and decoding is retried. Numbers decode as json.Number.
func LoadFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	return Load(content)
}

// Load decodes content the way LoadFile does.
func Load(content []byte) (*Document, error) {
	utf8Err := errInvalidUTF8

	if utf8.Valid(content) {
		value, err := decodeJSON(content)
		if err == nil {
			return &Document{Value: value, Encoding: "utf-8"}, nil
		}

		utf8Err = err
	}

	enc, name, _ := charset.DetermineEncoding(content, "application/json")

	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), content)
	if err != nil {
		return nil, fmt.Errorf("decode as %s: %w", name, err)
	}

	value, err := decodeJSON(decoded)
	if err != nil {
		return nil, fmt.Errorf("as utf-8: %w; as %s: %w", utf8Err, name, err)
	}

	return &Document{Value: value, Encoding: name}, nil
}

func decodeJSON(content []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var value any

	err := dec.Decode(&value)
	if err != nil {
		return nil, err
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return value, nil
}

// SchemaTag returns the document's $schema string, if any.
func SchemaTag(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}

	tag, _ := m["$schema"].(string)

	return tag
}
