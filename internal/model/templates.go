package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoTemplates is returned when templates.json does not exist.
var ErrNoTemplates = errors.New("no templates file found: create one with `mxctl templates save NAME`")

// Template is a reusable draft. Names are case-insensitive.
type Template struct {
	Name    string `mapstructure:"-" json:"name"`
	Subject string `mapstructure:"subject" json:"subject"`
	Body    string `mapstructure:"body" json:"body"`
}

func (p Paths) Templates() string { return filepath.Join(p.Dir, "templates.json") }

// TemplateKey normalizes a template name for lookup.
func TemplateKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidTemplateName reports whether name can be stored. Dots would nest
// keys in the file.
func ValidTemplateName(name string) bool {
	key := TemplateKey(name)
	return key != "" && !strings.ContainsAny(key, ". ")
}

// LoadTemplates reads templates.json, sorted by name. A missing file yields
// ErrNoTemplates; a file that does not parse is an error.
func LoadTemplates(p Paths) ([]Template, error) {
	v, found, err := readJSON(p.Templates())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoTemplates
	}
	byName := map[string]Template{}
	if err := v.Unmarshal(&byName); err != nil {
		return nil, fmt.Errorf("parsing templates %s: %w", p.Templates(), err)
	}
	out := make([]Template, 0, len(byName))
	for name, t := range byName {
		t.Name = name
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindTemplate returns the template called name.
func FindTemplate(templates []Template, name string) (Template, bool) {
	key := TemplateKey(name)
	for _, t := range templates {
		if t.Name == key {
			return t, true
		}
	}
	return Template{}, false
}

// SaveTemplates rewrites templates.json with exactly templates.
func SaveTemplates(p Paths, templates []Template) error {
	v := newJSON(p.Templates())
	for _, t := range templates {
		v.Set(TemplateKey(t.Name), map[string]any{"subject": t.Subject, "body": t.Body})
	}
	return writeJSON(v, p.Templates())
}
