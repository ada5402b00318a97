// Package pathtemplate turns data into filesystem paths and paths back into data
// with named templates such as "{project}/{sequence}/{shot}/v{version:\d+}".
//
// The Engine ties together a template registry, the resolver that picks the best
// template for a piece of data and, when a server is configured, the entity and
// registration clients.
//
// Basic usage:
//
//	engine := pathtemplate.New()
//	defer engine.Close()
//
//	engine.MustRegister("shot", "{project}/{sequence}/{shot}")
//	path, err := engine.Format("shot", template.Data{"project": "film", "sequence": "sq010", "shot": "sh020"})
//	data, name, err := engine.Parse("film/sq010/sh020")
package pathtemplate

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/git-hulk/pathtemplate/pkg/batch"
	"github.com/git-hulk/pathtemplate/pkg/entity"
	"github.com/git-hulk/pathtemplate/pkg/location"
	"github.com/git-hulk/pathtemplate/pkg/logger"
	"github.com/git-hulk/pathtemplate/pkg/registry"
	"github.com/git-hulk/pathtemplate/pkg/resolver"
	"github.com/git-hulk/pathtemplate/pkg/template"
)

var ErrNoServer = errors.New("no server configured")

// Engine is safe for concurrent use.
type Engine struct {
	registry  *registry.Registry
	resolver  *resolver.Resolver
	logger    *zap.Logger
	restyCli  *resty.Client
	entities  *entity.Client
	registrar *location.Registrar
}

// Option is a function that configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	templateOptions []template.Option
	harvester       resolver.Harvester
	harvesterSet    bool
	logger          *zap.Logger
	host            string
	httpClient      *http.Client
	batchOptions    []batch.Option
}

// WithTemplateOptions sets the options every registered pattern is compiled with.
func WithTemplateOptions(options ...template.Option) Option {
	return func(config *engineConfig) {
		config.templateOptions = append(config.templateOptions, options...)
	}
}

// WithHarvester replaces the default entity.Harvester. A nil harvester disables
// harvesting.
func WithHarvester(harvester resolver.Harvester) Option {
	return func(config *engineConfig) {
		config.harvester = harvester
		config.harvesterSet = true
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(config *engineConfig) {
		config.logger = l
	}
}

// WithServer sets the base URL of the server entities are fetched from and
// registrations are posted to.
func WithServer(host string) Option {
	return func(config *engineConfig) {
		config.host = host
	}
}

// WithHTTPClient sets a custom HTTP client for the server clients.
//
// Example:
//
//	httpClient := &http.Client{Timeout: 30 * time.Second}
//	engine := pathtemplate.New(pathtemplate.WithServer("https://tracker.example.com"), pathtemplate.WithHTTPClient(httpClient))
func WithHTTPClient(httpClient *http.Client) Option {
	return func(config *engineConfig) {
		config.httpClient = httpClient
	}
}

// WithBatchOptions configures the batching of registrations.
func WithBatchOptions(options ...batch.Option) Option {
	return func(config *engineConfig) {
		config.batchOptions = append(config.batchOptions, options...)
	}
}

// New creates an engine. Remember to call Close() when a server is configured so
// queued registrations are delivered.
func New(options ...Option) *Engine {
	config := &engineConfig{}
	for _, option := range options {
		option(config)
	}
	if config.logger == nil {
		config.logger = logger.Get()
	}

	resolverOptions := []resolver.Option{resolver.WithLogger(config.logger)}
	if config.harvesterSet {
		resolverOptions = append(resolverOptions, resolver.WithHarvester(config.harvester))
	}
	e := &Engine{
		registry: registry.New(config.templateOptions...),
		resolver: resolver.New(resolverOptions...),
		logger:   config.logger,
	}

	if config.host != "" {
		if config.httpClient != nil {
			e.restyCli = resty.NewWithClient(config.httpClient)
		} else {
			e.restyCli = resty.New()
		}
		e.restyCli.SetBaseURL(config.host)
		e.entities = entity.NewClient(e.restyCli)
		e.registrar = location.NewRegistrar(e.restyCli, config.batchOptions...)
	}
	return e
}

// Register compiles pattern and adds it under name. Templates are tried in the order
// they were registered.
func (e *Engine) Register(name, pattern string) (*template.Template, error) {
	return e.registry.Add(name, pattern)
}

// MustRegister is like Register but panics on error.
func (e *Engine) MustRegister(name, pattern string) *template.Template {
	return e.registry.MustAdd(name, pattern)
}

// Load registers every definition, keeping the valid ones when some fail.
func (e *Engine) Load(definitions []registry.Definition) error {
	return e.registry.Load(definitions)
}

func (e *Engine) Template(name string) (*template.Template, error) {
	return e.registry.Get(name)
}

func (e *Engine) Templates() []*template.Template {
	return e.registry.Templates()
}

// Name returns the name tmpl was registered under.
func (e *Engine) Name(tmpl *template.Template) (string, bool) {
	return e.registry.Name(tmpl)
}

// Parse parses candidate with the first registered template that matches it and
// returns the data with the template name.
func (e *Engine) Parse(candidate string) (template.Data, string, error) {
	data, tmpl, err := resolver.Parse(candidate, e.registry.Templates())
	if err != nil {
		return nil, "", err
	}
	name, _ := e.Name(tmpl)
	return data, name, nil
}

// Format formats data with the named template.
func (e *Engine) Format(name string, data template.Data) (string, error) {
	tmpl, err := e.registry.Get(name)
	if err != nil {
		return "", err
	}
	return tmpl.Format(data)
}

// Resolve formats data, completed with the values harvested from ent when it is not
// nil, with the registered templates.
func (e *Engine) Resolve(ctx context.Context, data template.Data, ent entity.Entity, mode resolver.Mode) ([]resolver.Match, error) {
	return e.resolver.Resolve(ctx, resolver.Request{
		Data:      data,
		Templates: e.registry.Templates(),
		Entity:    ent,
		Mode:      mode,
	})
}

// Fetch retrieves an entity and the entities around it from the server.
func (e *Engine) Fetch(ctx context.Context, ref entity.Reference, depth int) (*entity.Node, error) {
	if e.entities == nil {
		return nil, ErrNoServer
	}
	return e.entities.Fetch(ctx, ref, depth)
}

// Location creates a location over the registered templates. Its registrations are
// delivered through the engine when a server is configured.
func (e *Engine) Location(name, prefix string) (*location.Location, error) {
	options := []location.Option{
		location.WithPrefix(prefix),
		location.WithResolver(e.resolver),
		location.WithLogger(e.logger),
	}
	if e.registrar != nil {
		options = append(options, location.WithRegistrar(e.registrar))
	}
	return location.New(name, e.registry.Templates(), options...)
}

// Flush asks the engine to send queued registrations now.
func (e *Engine) Flush() {
	if e.registrar != nil {
		e.registrar.Flush()
	}
}

// Close delivers the queued registrations. It is a no-op without a server.
func (e *Engine) Close() error {
	if e.registrar == nil {
		return nil
	}
	return e.registrar.Close()
}
