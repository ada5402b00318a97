// Package location maps entities to resource identifiers inside a named storage root
// and records the identifiers with a registry server.
//
//	loc, err := location.New("studio", templates,
//		location.WithPrefix("/mnt/projects/"),
//		location.WithRegistrar(location.NewRegistrar(cli)),
//	)
//	if err != nil {
//		return err
//	}
//	registration, err := loc.Register(ctx, version, template.Data{"ext": "exr"})
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/git-hulk/pathtemplate/pkg/entity"
	"github.com/git-hulk/pathtemplate/pkg/logger"
	"github.com/git-hulk/pathtemplate/pkg/resolver"
	"github.com/git-hulk/pathtemplate/pkg/template"
)

var ErrNoRegistrar = errors.New("location has no registrar")

// Location is a named storage root with the ordered templates that lay out resources
// inside it.
type Location struct {
	name      string
	prefix    string
	templates []*template.Template
	resolver  *resolver.Resolver
	registrar *Registrar
	logger    *zap.Logger
}

type Option func(*Location)

// WithPrefix sets the storage root prepended verbatim to every resource identifier,
// so it should end with the separator.
func WithPrefix(prefix string) Option {
	return func(l *Location) {
		l.prefix = prefix
	}
}

func WithResolver(r *resolver.Resolver) Option {
	return func(l *Location) {
		l.resolver = r
	}
}

// WithRegistrar enables Register. The registrar is shared, not owned: closing it is
// up to the caller.
func WithRegistrar(registrar *Registrar) Option {
	return func(l *Location) {
		l.registrar = registrar
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(loc *Location) {
		loc.logger = l
	}
}

// New creates a location. The templates are tried in the given order.
func New(name string, templates []*template.Template, options ...Option) (*Location, error) {
	if name == "" {
		return nil, errors.New("'name' is required")
	}
	l := &Location{
		name:      name,
		templates: append([]*template.Template(nil), templates...),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.resolver == nil {
		l.resolver = resolver.New()
	}
	if l.logger == nil {
		l.logger = logger.Get()
	}
	return l, nil
}

func (l *Location) Name() string {
	return l.name
}

func (l *Location) Prefix() string {
	return l.prefix
}

func (l *Location) Templates() []*template.Template {
	return append([]*template.Template(nil), l.templates...)
}

// ResourceIdentifier resolves the best template for data, completed with the data
// harvested from e when e is not nil, and returns the prefixed path with the
// template that produced it.
func (l *Location) ResourceIdentifier(ctx context.Context, e entity.Entity, data template.Data) (string, *template.Template, error) {
	match, err := l.resolver.Best(ctx, data, l.templates, e)
	if err != nil {
		resourceIdentifierTotal.WithLabelValues(l.name, statusFailed).Inc()
		return "", nil, err
	}
	resourceIdentifierTotal.WithLabelValues(l.name, statusResolved).Inc()
	return l.prefix + match.Path, match.Template, nil
}

// Parse strips the location prefix from identifier and parses the remainder with
// the first template that matches it.
func (l *Location) Parse(identifier string) (template.Data, *template.Template, error) {
	path, ok := strings.CutPrefix(identifier, l.prefix)
	if !ok {
		return nil, nil, &template.ParseError{
			Candidate: identifier,
			Reason:    fmt.Sprintf("outside of location %q", l.name),
		}
	}
	return resolver.Parse(path, l.templates)
}

// Register resolves the resource identifier of e and queues it for registration.
// The returned registration is only queued; delivery happens in the background.
func (l *Location) Register(ctx context.Context, e entity.Entity, data template.Data) (Registration, error) {
	if l.registrar == nil {
		return Registration{}, ErrNoRegistrar
	}
	identifier, tmpl, err := l.ResourceIdentifier(ctx, e, data)
	if err != nil {
		return Registration{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return Registration{}, fmt.Errorf("generate registration id: %w", err)
	}

	registration := Registration{
		ID:                 id.String(),
		Timestamp:          time.Now().UTC(),
		Location:           l.name,
		ResourceIdentifier: identifier,
		Pattern:            tmpl.Pattern(),
	}
	if e != nil {
		registration.EntityType = e.Type()
		registration.EntityID = e.ID()
	}
	if err := l.registrar.Submit(registration); err != nil {
		l.logger.Warn("registration dropped",
			zap.String("location", l.name),
			zap.String("resource_identifier", identifier),
			zap.Error(err))
		return registration, err
	}
	return registration, nil
}
