package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a document decodes but lists no scenarios.
var ErrEmpty = errors.New("no scenarios found")

// LoadFile reads and strictly decodes a scenario YAML file into a catalog.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario file: %w", err)
	}
	defer f.Close()
	cat, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Load decodes a scenario document from r. Unknown fields are rejected.
func Load(r io.Reader) (*Catalog, error) {
	doc, err := decode(r)
	if err != nil {
		return nil, err
	}
	if len(doc.URLs) == 0 {
		return nil, ErrEmpty
	}
	return NewCatalog(doc.URLs), nil
}

func decode(r io.Reader) (*File, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	return &doc, nil
}
