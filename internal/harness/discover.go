package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefinitionNotFoundError is returned when a referenced definition path does
// not exist.
type DefinitionNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("definition %q does not exist", e.Path)
}

// FindDefinitions expands paths into definition files. A directory
// contributes its *.yaml and *.yml files (not recursively) in lexical order;
// a file is taken as is. Duplicates are dropped.
func FindDefinitions(paths ...string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &DefinitionNotFoundError{Path: p}
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		var files []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(files)
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}
