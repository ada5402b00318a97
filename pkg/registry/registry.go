// Package registry holds caller-owned, ordered collections of named templates.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/git-hulk/pathtemplate/pkg/template"
)

var (
	ErrDuplicateName = errors.New("template name already registered")
	ErrNotFound      = errors.New("template not found")
)

// Definition is an uncompiled template.
type Definition struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Entry is a compiled template registered under a name.
type Entry struct {
	Name     string
	Template *template.Template
}

// Registry is an ordered set of named templates. Registration order is preserved
// and is the order the resolver tries templates in. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	options []template.Option
	entries []Entry
	index   map[string]int
}

// New creates an empty registry compiling every pattern with options.
func New(options ...template.Option) *Registry {
	return &Registry{
		options: options,
		index:   make(map[string]int),
	}
}

// Add compiles pattern and registers it under name.
func (r *Registry) Add(name, pattern string) (*template.Template, error) {
	if name == "" {
		return nil, errors.New("'name' is required")
	}
	tmpl, err := template.New(pattern, r.options...)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, Entry{Name: name, Template: tmpl})
	return tmpl, nil
}

// MustAdd is like Add but panics on error.
func (r *Registry) MustAdd(name, pattern string) *template.Template {
	tmpl, err := r.Add(name, pattern)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Load registers every definition. A definition that fails does not stop the others;
// all failures are returned together and can be inspected with multierr.Errors.
func (r *Registry) Load(definitions []Definition) error {
	var err error
	for _, definition := range definitions {
		if _, addErr := r.Add(definition.Name, definition.Pattern); addErr != nil {
			err = multierr.Append(err, addErr)
		}
	}
	return err
}

// Get returns the template registered under name.
func (r *Registry) Get(name string) (*template.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return r.entries[i].Template, nil
}

// Name returns the name tmpl was registered under.
func (r *Registry) Name(tmpl *template.Template) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.Template == tmpl {
			return entry.Name, true
		}
	}
	return "", false
}

// Templates returns the registered templates in registration order.
func (r *Registry) Templates() []*template.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	templates := make([]*template.Template, 0, len(r.entries))
	for _, entry := range r.entries {
		templates = append(templates, entry.Template)
	}
	return templates
}

// Entries returns a copy of the registered entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
