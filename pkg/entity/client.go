package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/go-resty/resty/v2"
)

var ErrEntityNotFound = errors.New("entity not found")

// Reference identifies an entity on the entity server.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Record is the wire form of an entity as served by GET /entities/{type}/{id}.
// Relations and links refer to other entities by reference.
type Record struct {
	Type       string               `json:"type"`
	ID         string               `json:"id"`
	Attributes map[string]any       `json:"attributes,omitempty"`
	Relations  map[string]Reference `json:"relations,omitempty"`
	Links      []Reference          `json:"links,omitempty"`
}

// Client fetches entities from an entity server.
type Client struct {
	restyCli *resty.Client
}

// NewClient creates a new entity client with the provided HTTP client.
//
// The resty client should be pre-configured with authentication and base URL.
func NewClient(cli *resty.Client) *Client {
	return &Client{restyCli: cli}
}

// Get retrieves a single entity record.
func (c *Client) Get(ctx context.Context, ref Reference) (*Record, error) {
	if ref.Type == "" {
		return nil, errors.New("'type' is required")
	}
	if ref.ID == "" {
		return nil, errors.New("'id' is required")
	}

	rsp, err := c.restyCli.R().
		SetContext(ctx).
		SetPathParam("type", ref.Type).
		SetPathParam("id", ref.ID).
		Get("/entities/{type}/{id}")
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s %s", ErrEntityNotFound, ref.Type, ref.ID)
	}
	if rsp.IsError() {
		return nil, fmt.Errorf("get entity failed: %s, got status code: %d", rsp.String(), rsp.StatusCode())
	}

	var record Record
	decoder := json.NewDecoder(bytes.NewReader(rsp.Body()))
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity response: %w", err)
	}
	for name, value := range record.Attributes {
		record.Attributes[name] = normalizeNumber(value)
	}
	return &record, nil
}

// Fetch retrieves the entity ref and, up to depth hops away, the entities it relates
// to and links to. Entities are fetched level by level, relations in name order, so
// every entity is expanded from its shortest distance to ref and the graph is the
// same on every call. Each entity is fetched at most once per call, so shared
// ancestors and cycles resolve to the same Node.
func (c *Client) Fetch(ctx context.Context, ref Reference, depth int) (*Node, error) {
	type pending struct {
		node   *Node
		record *Record
	}

	seen := make(map[Reference]*Node)
	var next []pending
	visit := func(target Reference) (*Node, error) {
		if node, ok := seen[target]; ok {
			return node, nil
		}
		record, err := c.Get(ctx, target)
		if err != nil {
			return nil, err
		}
		node := &Node{Kind: record.Type, Key: record.ID, Attributes: record.Attributes}
		seen[target] = node
		next = append(next, pending{node: node, record: record})
		return node, nil
	}

	root, err := visit(ref)
	if err != nil {
		return nil, err
	}
	for remaining := depth; remaining > 0 && len(next) > 0; remaining-- {
		level := next
		next = nil
		for _, p := range level {
			for _, name := range slices.Sorted(maps.Keys(p.record.Relations)) {
				child, err := visit(p.record.Relations[name])
				if err != nil {
					return nil, fmt.Errorf("relation %q of %s %s: %w", name, p.record.Type, p.record.ID, err)
				}
				p.node.Relate(name, child)
			}
			for _, link := range p.record.Links {
				ancestor, err := visit(link)
				if err != nil {
					return nil, fmt.Errorf("link of %s %s: %w", p.record.Type, p.record.ID, err)
				}
				p.node.Ancestors = append(p.node.Ancestors, ancestor)
			}
		}
	}
	return root, nil
}

// normalizeNumber turns JSON integers into int64 so they are zero-padded like any
// other integer attribute.
func normalizeNumber(value any) any {
	number, ok := value.(json.Number)
	if !ok {
		return value
	}
	if i, err := number.Int64(); err == nil {
		return i
	}
	if f, err := number.Float64(); err == nil {
		return f
	}
	return number.String()
}
