package entity

import (
	"context"
	"strings"

	"github.com/git-hulk/pathtemplate/pkg/template"
)

const namespacePrefix = "#"

// Relation publishes the entity reached by the first resolvable path under Namespace.
type Relation struct {
	Namespace string
	Paths     []string
}

// DefaultRelations are the shortcuts registered for every Harvester, keyed by entity
// namespace. A component prefers the version of its container over its own.
func DefaultRelations() map[string][]Relation {
	return map[string][]Relation{
		"assetversion": {
			{Namespace: "task", Paths: []string{"task"}},
			{Namespace: "asset", Paths: []string{"asset"}},
		},
		"component": {
			{Namespace: "assetversion", Paths: []string{"container.version", "version"}},
			{Namespace: "task", Paths: []string{"container.version.task", "version.task"}},
			{Namespace: "asset", Paths: []string{"container.version.asset", "version.asset"}},
			{Namespace: "container", Paths: []string{"container"}},
		},
	}
}

// DefaultLinkSources name, per namespace, the related entities whose ancestors stand
// in for the entity's own when it has none.
func DefaultLinkSources() map[string][]string {
	return map[string][]string{
		"component": {"container.version", "version"},
	}
}

type harvesterConfig struct {
	padding     int
	relations   map[string][]Relation
	linkSources map[string][]string
}

type HarvesterOption func(*harvesterConfig)

// WithPadding sets the zero-padded width of integer attributes. Default is 3.
func WithPadding(padding int) HarvesterOption {
	return func(c *harvesterConfig) {
		c.padding = padding
	}
}

// WithRelations replaces the relation shortcuts of an entity namespace.
func WithRelations(namespace string, relations ...Relation) HarvesterOption {
	return func(c *harvesterConfig) {
		c.relations[strings.ToLower(namespace)] = relations
	}
}

// WithLinkSources replaces the link sources of an entity namespace.
func WithLinkSources(namespace string, paths ...string) HarvesterOption {
	return func(c *harvesterConfig) {
		c.linkSources[strings.ToLower(namespace)] = paths
	}
}

// Harvester resolves namespaced keys of the form "#<namespace>.<attr>[.<attr>...]"
// against an entity and its context: its ancestors, itself and its relation
// shortcuts. Unresolvable namespaces and attributes are left out of the result.
type Harvester struct {
	config harvesterConfig
}

func NewHarvester(options ...HarvesterOption) *Harvester {
	config := harvesterConfig{
		padding:     template.DefaultPadding,
		relations:   DefaultRelations(),
		linkSources: DefaultLinkSources(),
	}
	for _, option := range options {
		option(&config)
	}
	if config.padding <= 0 {
		config.padding = template.DefaultPadding
	}
	return &Harvester{config: config}
}

// Context maps namespaces to the entities visible from e. Later sources override
// earlier ones: ancestors, then e itself, then relation shortcuts.
func (h *Harvester) Context(e Entity) map[string]Entity {
	entities := make(map[string]Entity)
	for _, ancestor := range h.links(e) {
		entities[Namespace(ancestor)] = ancestor
	}
	namespace := Namespace(e)
	entities[namespace] = e
	for _, relation := range h.config.relations[namespace] {
		for _, path := range relation.Paths {
			if related, ok := Follow(e, path); ok {
				entities[relation.Namespace] = related
				break
			}
		}
	}
	return entities
}

func (h *Harvester) links(e Entity) []Entity {
	if linked, ok := e.(Linked); ok {
		if links := linked.Links(); len(links) > 0 {
			return links
		}
	}
	for _, path := range h.config.linkSources[Namespace(e)] {
		source, ok := Follow(e, path)
		if !ok {
			continue
		}
		if linked, ok := source.(Linked); ok {
			return linked.Links()
		}
	}
	return nil
}

// Harvest returns the data for every namespaced key in keys that e can supply. Keys
// without the namespace prefix are ignored. The result has one nested map per
// namespace, e.g. {"#asset": {"name": "Crate"}}.
func (h *Harvester) Harvest(ctx context.Context, e Entity, keys []string) (template.Data, error) {
	data := make(template.Data)
	if e == nil {
		return data, nil
	}

	entities := h.Context(e)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(key, namespacePrefix) {
			continue
		}
		parts := strings.Split(key, ".")
		if len(parts) < 2 {
			continue
		}
		source, ok := entities[strings.TrimPrefix(parts[0], namespacePrefix)]
		if !ok {
			continue
		}
		value, ok := h.walk(source, parts[1:])
		if !ok {
			continue
		}

		namespace, _ := data[parts[0]].(map[string]any)
		if namespace == nil {
			namespace = make(map[string]any)
			data[parts[0]] = namespace
		}
		mergeInto(namespace, map[string]any{parts[1]: value})
	}
	return data, nil
}

// walk resolves an attribute path: every name but the last is a relationship.
func (h *Harvester) walk(e Entity, names []string) (any, bool) {
	if len(names) == 1 {
		value, ok := e.Attribute(names[0])
		if !ok {
			return nil, false
		}
		return h.normalize(value), true
	}
	related, ok := e.Related(names[0])
	if !ok || related == nil {
		return nil, false
	}
	value, ok := h.walk(related, names[1:])
	if !ok {
		return nil, false
	}
	return map[string]any{names[1]: value}, true
}

func (h *Harvester) normalize(value any) any {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		formatted, _ := template.FormatValue(value, h.config.padding)
		return formatted
	}
	return value
}

// mergeInto copies src into dst, descending into maps present on both sides.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}
