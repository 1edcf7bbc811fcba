// Package prompts holds the model prompt templates, one JSON object of
// named templates per model role.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// catalog maps a template file to its named templates
type catalog map[string]map[string]string

// templates parses every embedded file on first use. A malformed file fails
// every lookup, not only lookups into that file.
var templates = sync.OnceValues(func() (catalog, error) {
	return parseCatalog(promptFiles)
})

func parseCatalog(fsys fs.FS) (catalog, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	c := make(catalog, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		c[name] = entries
	}
	return c, nil
}

func (c catalog) lookup(file, key string) (string, error) {
	entries, ok := c[file]
	if !ok {
		return "", fmt.Errorf("no prompt file %s", file)
	}
	tmpl, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("prompt %q not in %s (have %s)", key, file, strings.Join(c.keys(file), ", "))
	}
	return tmpl, nil
}

func (c catalog) keys(file string) []string {
	keys := make([]string, 0, len(c[file]))
	for key := range c[file] {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the template named key from file, e.g. Get("script.json", "podcast-script").
func Get(file, key string) (string, error) {
	c, err := templates()
	if err != nil {
		return "", err
	}
	return c.lookup(file, key)
}

// Format substitutes {{.Name}} placeholders. Substituted values are not
// scanned again, and placeholders without a value stay in place.
func Format(template string, data map[string]string) string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		pairs = append(pairs, "{{."+name+"}}", data[name])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
