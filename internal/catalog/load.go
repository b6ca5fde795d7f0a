package catalog

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type fileEvent struct {
	Beats float64 `yaml:"beats"`
	Rest  bool    `yaml:"rest"`
}

type fileSymbol struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Glyph  string      `yaml:"glyph"`
	Events []fileEvent `yaml:"events"`
}

type fileCatalog struct {
	Symbols []fileSymbol `yaml:"symbols"`
}

// Load reads a YAML catalog:
//
//	symbols:
//	  - id: q
//	    name: quarter
//	    glyph: quarter-note
//	    events: [{beats: 1}]
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var fc fileCatalog
	if err := dec.Decode(&fc); err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(ErrInvalidSymbol, "catalog is empty")
		}
		return nil, errors.Wrap(err, "decode catalog")
	}
	if len(fc.Symbols) == 0 {
		return nil, errors.Wrap(ErrInvalidSymbol, "catalog has no symbols")
	}
	symbols := make([]Symbol, 0, len(fc.Symbols))
	for _, fs := range fc.Symbols {
		s := Symbol{ID: fs.ID, Name: fs.Name, Glyph: fs.Glyph}
		for _, fe := range fs.Events {
			s.SubEvents = append(s.SubEvents, SubEvent{Beats: fe.Beats, Rest: fe.Rest})
		}
		symbols = append(symbols, s)
	}
	return New(symbols...)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	c, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	return c, nil
}
