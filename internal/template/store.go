// Package template loads and renders the marker-substitution HTML views
// described in spec.md §4.1, grounded on the directory-scan pattern
// original_source/src/app/lang.rs uses for per-module/class resources
// (here dir/app/<module>/<class>/view_<name>.html instead of lang_<iso>.ini).
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is the immutable, process-wide view table built once at startup.
type Store struct {
	// views[module][class][name] = raw template text
	views map[string]map[string]map[string]string
}

func Load(dir string) (*Store, error) {
	s := &Store{views: make(map[string]map[string]map[string]string)}

	appDir := filepath.Join(dir, "app")
	modules, err := os.ReadDir(appDir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("template: read app dir: %w", err)
	}
	for _, moduleEntry := range modules {
		if !moduleEntry.IsDir() {
			continue
		}
		module := moduleEntry.Name()
		classes, err := os.ReadDir(filepath.Join(appDir, module))
		if err != nil {
			return nil, fmt.Errorf("template: read module %q: %w", module, err)
		}
		for _, classEntry := range classes {
			if !classEntry.IsDir() {
				continue
			}
			class := classEntry.Name()
			classDir := filepath.Join(appDir, module, class)
			files, err := os.ReadDir(classDir)
			if err != nil {
				return nil, fmt.Errorf("template: read class %q: %w", class, err)
			}
			for _, f := range files {
				name, ok := viewFileName(f.Name())
				if !ok {
					continue
				}
				raw, err := os.ReadFile(filepath.Join(classDir, f.Name()))
				if err != nil {
					return nil, fmt.Errorf("template: %s/%s/%s: %w", module, class, f.Name(), err)
				}
				s.put(module, class, name, string(raw))
			}
		}
	}
	return s, nil
}

func viewFileName(fileName string) (string, bool) {
	const prefix, suffix = "view_", ".html"
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, suffix) {
		return "", false
	}
	return fileName[len(prefix) : len(fileName)-len(suffix)], true
}

func (s *Store) put(module, class, name, content string) {
	if s.views[module] == nil {
		s.views[module] = make(map[string]map[string]string)
	}
	if s.views[module][class] == nil {
		s.views[module][class] = make(map[string]string)
	}
	s.views[module][class][name] = content
}

// Get returns the raw template text for module/class/name.
func (s *Store) Get(module, class, name string) (string, bool) {
	if c := s.views[module]; c != nil {
		if n := c[class]; n != nil {
			v, ok := n[name]
			return v, ok
		}
	}
	return "", false
}
