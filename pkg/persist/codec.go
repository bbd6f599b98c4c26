// Package persist stores lineages and analysis results between pipeline stages.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

const (
	jsonExtension = ".json"
	gobExtension  = ".gob"
	lz4Extension  = ".lz4"
)

const defaultIndent = "  "

// ErrUnknownExtension is returned when no codec matches a file name.
var ErrUnknownExtension = errors.New("unknown persistence file extension")

// Codec defines how values are serialized.
type Codec interface {
	// Encode writes v to w.
	Encode(w io.Writer, v any) error
	// Decode reads r into v.
	Decode(r io.Reader, v any) error
	// Extension returns the file extension, including the dot.
	Extension() string
}

// JSONCodec encodes values as JSON.
type JSONCodec struct {
	// Indent is the indentation string. Empty means compact output.
	Indent string
}

// NewJSONCodec creates a JSON codec with two-space indentation.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode writes v as JSON.
func (c *JSONCodec) Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode reads JSON into v.
func (c *JSONCodec) Decode(r io.Reader, v any) error {
	err := json.NewDecoder(r).Decode(v)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension returns ".json".
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// GobCodec encodes values with encoding/gob.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode writes v as gob.
func (c *GobCodec) Encode(w io.Writer, v any) error {
	err := gob.NewEncoder(w).Encode(v)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode reads gob into v.
func (c *GobCodec) Decode(r io.Reader, v any) error {
	err := gob.NewDecoder(r).Decode(v)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension returns ".gob".
func (c *GobCodec) Extension() string {
	return gobExtension
}

// LZ4Codec frames another codec's output with lz4 compression.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec wraps inner with lz4 framing.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Encode compresses the inner encoding of v.
func (c *LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, v)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode decompresses r and decodes it with the inner codec.
func (c *LZ4Codec) Decode(r io.Reader, v any) error {
	return c.Inner.Decode(lz4.NewReader(r), v)
}

// Extension returns the inner extension followed by ".lz4".
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}

// CodecFor picks a codec from the file name: .json, .gob, .json.lz4 or .gob.lz4.
func CodecFor(path string) (Codec, error) {
	name := strings.ToLower(path)

	compressed := strings.HasSuffix(name, lz4Extension)
	name = strings.TrimSuffix(name, lz4Extension)

	var codec Codec

	switch {
	case strings.HasSuffix(name, jsonExtension):
		codec = NewJSONCodec()
	case strings.HasSuffix(name, gobExtension):
		codec = NewGobCodec()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, path)
	}

	if compressed {
		return NewLZ4Codec(codec), nil
	}

	return codec, nil
}
