// Package entity supplies template data harvested from a hierarchical entity graph.
//
// The graph is reached only through the Entity capability interface, so any object
// model (an in-memory Node tree, entities fetched over HTTP, or a caller's own types)
// can feed namespaced placeholders such as "{#asset.name}" or "{#project.code}".
package entity

import "strings"

// Entity is a node of a caller-owned object graph.
type Entity interface {
	// Type is the entity type, e.g. "AssetVersion". Its lower-cased form is the
	// namespace the entity is published under.
	Type() string
	ID() string
	// Attribute returns a scalar attribute.
	Attribute(name string) (any, bool)
	// Related returns the entity reached through a named relationship.
	Related(name string) (Entity, bool)
}

// Linked is implemented by entities that know their ancestors, ordered from the root
// (e.g. the project) down to the direct parent. The entity itself is not included.
type Linked interface {
	Links() []Entity
}

// Namespace returns the namespace an entity is published under.
func Namespace(e Entity) string {
	return strings.ToLower(e.Type())
}

// Follow walks a dotted relationship path such as "container.version".
func Follow(e Entity, path string) (Entity, bool) {
	current := e
	for _, name := range strings.Split(path, ".") {
		next, ok := current.Related(name)
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}
