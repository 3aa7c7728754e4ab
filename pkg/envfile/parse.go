// SPDX-License-Identifier: MPL-2.0

package envfile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"podbox/pkg/cueutil"
)

// EnvfileName is the base name for envfile documents.
const EnvfileName = "envfile"

//go:embed envfile_schema.cue
var envfileSchema string

// Envfile represents the environments declared by one envfile.cue
// document.
type Envfile struct {
	// Environments are the declared environments.
	Environments []Environment `json:"environments"`

	// FilePath is where this envfile was loaded from. Not in CUE.
	FilePath string `json:"-"`
}

// Parse reads and parses an envfile from the given path.
func Parse(path string) (*Envfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read envfile at %s: %w", path, err)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses envfile content from bytes. After schema validation
// each environment is normalized: legacy capability names rewritten and
// every capability checked against the closed set.
func ParseBytes(data []byte, path string) (*Envfile, error) {
	result, err := cueutil.ParseAndDecodeString[Envfile](
		envfileSchema,
		data,
		"#Envfile",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}

	ef := result.Value
	ef.FilePath = path

	for i := range ef.Environments {
		ef.Environments[i].FilePath = path
		if err := ef.Environments[i].Normalize(); err != nil {
			return nil, err
		}
	}

	return ef, nil
}

// LoadDir parses every *.cue document in dir into a Set. Files are
// visited in sorted order so duplicate-name errors are deterministic.
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read environments directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cue" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	set := NewSet()
	for _, path := range paths {
		ef, err := Parse(path)
		if err != nil {
			return nil, err
		}
		for i := range ef.Environments {
			if err := set.Add(&ef.Environments[i]); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
