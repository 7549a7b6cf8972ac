package rolepool

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type poolFile struct {
	Owners []Entry `yaml:"owners"`
}

// FileSource reads the pool from a YAML document on every call, so edits to
// the file are picked up without a restart.
//
//	owners:
//	  - ownerId: u-1
//	    displayName: Sam
//	    tenants: {acme: sdr}
//	    regions: [east, west]
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListEntries parses the file.
func (s *FileSource) ListEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read owner pool file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a pool document.
func ParseYAML(data []byte) ([]Entry, error) {
	var doc poolFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode owner pool file: %w", err)
	}
	for i, e := range doc.Owners {
		if e.OwnerID == "" {
			return nil, fmt.Errorf("owner pool entry %d has no ownerId", i)
		}
	}
	return doc.Owners, nil
}

// StaticSource serves a fixed pool.
type StaticSource []Entry

// ListEntries returns a copy of the pool.
func (s StaticSource) ListEntries(context.Context) ([]Entry, error) {
	return append([]Entry(nil), s...), nil
}
