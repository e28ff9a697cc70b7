package classifier

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Save writes the classifier to w using encoding/gob. No pack dependency
// offers a Go-native struct serialization format, and gob needs no schema
// file or code generation step, so it is used directly rather than adding a
// dependency for a handful of plain exported structs.
func (c *Classifier) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(c)
}

// SaveFile writes the classifier to the named file, truncating it if it
// already exists.
func (c *Classifier) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("classifier: create %s: %w", path, err)
	}
	defer f.Close()

	if err := c.Save(f); err != nil {
		return fmt.Errorf("classifier: encode %s: %w", path, err)
	}
	return nil
}

// Load reads a classifier previously written by Save.
func Load(r io.Reader) (*Classifier, error) {
	var c Classifier
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("classifier: decode: %w", err)
	}
	return &c, nil
}

// LoadFile reads a classifier from the named file.
func LoadFile(path string) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}
