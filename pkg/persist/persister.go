package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Save encodes v into path. The file is written to a temporary sibling first
// and renamed into place, so readers never observe a partial file.
func Save(path string, codec Codec, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	err = codec.Encode(tmp, v)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("encode %s: %w", path, err)
	}

	err = tmp.Close()
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("rename into %s: %w", path, err)
	}

	return nil
}

// Load decodes path into v.
func Load(path string, codec Codec, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// Persister handles I/O of one value type at a fixed path.
type Persister[T any] struct {
	path  string
	codec Codec
}

// NewPersister creates a persister choosing the codec from path's extension.
func NewPersister[T any](path string) (*Persister[T], error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}

	return &Persister[T]{path: path, codec: codec}, nil
}

// NewPersisterWithCodec creates a persister with an explicit codec.
func NewPersisterWithCodec[T any](path string, codec Codec) *Persister[T] {
	return &Persister[T]{path: path, codec: codec}
}

// Path returns the file the persister reads and writes.
func (p *Persister[T]) Path() string {
	return p.path
}

// Save writes v.
func (p *Persister[T]) Save(v *T) error {
	return Save(p.path, p.codec, v)
}

// Load reads the stored value.
func (p *Persister[T]) Load() (*T, error) {
	var v T

	err := Load(p.path, p.codec, &v)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// LoadList reads a stored list. A missing file is an empty list.
func LoadList[T any](p *Persister[[]T]) ([]T, error) {
	list, err := p.Load()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return *list, nil
}

// Append adds entries to the list stored by p, keeping every entry already
// stored. It reads the whole list, appends and writes it back.
func Append[T any](p *Persister[[]T], entries ...T) error {
	list, err := LoadList(p)
	if err != nil {
		return err
	}

	list = append(list, entries...)

	return p.Save(&list)
}
