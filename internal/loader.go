// Configuration loaders (spec §6: "load(name, source) -> JSON-text |
// null").
//
// The teacher's LoadConfig took an optional `buf []byte` purely so tests
// could inject configuration without touching the filesystem. That same
// split is made explicit here as two Loader implementations: DirLoader for
// the real filesystem case, MapLoader for tests and in-memory use, both
// satisfying the same interface the container depends on.

package iotcore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Loader resolves a name to JSON configuration text. source is an opaque
// value meaningful only to the concrete implementation (ignored by both
// DirLoader, which reads from its own Dir, and MapLoader). Returning
// ("", nil) means "no configuration for this name."
type Loader interface {
	Load(name string, source any) (string, error)
}

// DirLoader reads "<dir>/<name>.json" for each name, where dir is
// DirLoader's own configured root (source is accepted for interface
// symmetry but ignored).
type DirLoader struct {
	Dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

func (dl *DirLoader) Load(name string, source any) (string, error) {
	path := filepath.Join(dl.Dir, name+".json")
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("dir loader: %q: %w", path, err)
	}
	return string(buf), nil
}

// MapLoader serves JSON text out of an in-memory map, keyed by name. Used
// by tests in place of a filesystem, mirroring the teacher's `buf []byte`
// test-injection parameter in LoadConfig.
type MapLoader map[string]string

func (ml MapLoader) Load(name string, source any) (string, error) {
	return ml[name], nil
}
