// Package resolver picks, among a collection of templates, the ones that can be
// formatted with a given data mapping.
//
// Data supplied by the caller can be completed with namespaced values harvested from
// an entity graph (see package entity) before the templates are tried:
//
//	r := resolver.New()
//	match, err := r.Best(ctx, template.Data{"ext": "exr"}, templates, version)
//	if err != nil {
//		return err
//	}
//	fmt.Println(match.Path)
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/go-set/v3"
	"go.uber.org/zap"

	"github.com/git-hulk/pathtemplate/pkg/entity"
	"github.com/git-hulk/pathtemplate/pkg/logger"
	"github.com/git-hulk/pathtemplate/pkg/template"
)

var (
	ErrNoFormattableTemplate = errors.New("no formattable template")
	ErrNoParsableTemplate    = errors.New("no parsable template")
)

// Mode selects what Resolve returns.
type Mode int

const (
	// BestMatch returns the successful template with the most keys; ties go to
	// the template listed first.
	BestMatch Mode = iota
	// All returns every successful template in the order given.
	All
)

func (m Mode) String() string {
	switch m {
	case BestMatch:
		return "best_match"
	case All:
		return "all"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Harvester supplies namespaced data for the keys an entity can resolve.
type Harvester interface {
	Harvest(ctx context.Context, e entity.Entity, keys []string) (template.Data, error)
}

// Match is a formatted path and the template that produced it.
type Match struct {
	Path     string
	Template *template.Template
}

// Attempt is the outcome of formatting one template.
type Attempt struct {
	Template *template.Template
	Path     string
	Err      error
}

func (a Attempt) OK() bool {
	return a.Err == nil
}

// Request describes one resolution. Entity is optional.
type Request struct {
	Data      template.Data
	Templates []*template.Template
	Entity    entity.Entity
	Mode      Mode
}

// Resolver is stateless apart from its collaborators and safe for concurrent use.
type Resolver struct {
	harvester Harvester
	logger    *zap.Logger
}

type Option func(*Resolver)

// WithHarvester replaces the default entity.Harvester. A nil harvester disables
// harvesting.
func WithHarvester(harvester Harvester) Option {
	return func(r *Resolver) {
		r.harvester = harvester
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

func New(options ...Option) *Resolver {
	r := &Resolver{harvester: entity.NewHarvester()}
	for _, option := range options {
		option(r)
	}
	if r.logger == nil {
		r.logger = logger.Get()
	}
	return r
}

// Resolve formats req.Data, completed with values harvested from req.Entity, with
// every template and selects the result according to req.Mode. It fails with a
// *template.FormatError wrapping ErrNoFormattableTemplate when no template succeeds.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]Match, error) {
	data, err := r.Prepare(ctx, req.Data, req.Templates, req.Entity)
	if err != nil {
		return nil, err
	}
	attempts := Attempts(data, req.Templates)
	for _, attempt := range attempts {
		if !attempt.OK() {
			r.logger.Debug("template skipped",
				zap.String("pattern", attempt.Template.Pattern()),
				zap.Error(attempt.Err))
		}
	}
	matches, err := Select(attempts, req.Mode)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("templates resolved",
		zap.Stringer("mode", req.Mode),
		zap.Int("candidates", len(req.Templates)),
		zap.Int("matches", len(matches)))
	return matches, nil
}

// Best resolves in BestMatch mode.
func (r *Resolver) Best(ctx context.Context, data template.Data, templates []*template.Template, e entity.Entity) (Match, error) {
	matches, err := r.Resolve(ctx, Request{Data: data, Templates: templates, Entity: e, Mode: BestMatch})
	if err != nil {
		return Match{}, err
	}
	return matches[0], nil
}

// All resolves in All mode.
func (r *Resolver) All(ctx context.Context, data template.Data, templates []*template.Template, e entity.Entity) ([]Match, error) {
	return r.Resolve(ctx, Request{Data: data, Templates: templates, Entity: e, Mode: All})
}

// Prepare returns data completed with the namespaced keys the templates need and the
// entity can supply. The caller's data is never modified.
func (r *Resolver) Prepare(ctx context.Context, data template.Data, templates []*template.Template, e entity.Entity) (template.Data, error) {
	if e == nil || r.harvester == nil {
		return Merge(data, nil), nil
	}

	keys := set.New[string](0)
	for _, tmpl := range templates {
		keys.InsertSlice(tmpl.Keys())
	}
	names := keys.Slice()
	slices.Sort(names)

	harvested, err := r.harvester.Harvest(ctx, e, names)
	if err != nil {
		return nil, fmt.Errorf("harvest %s %s: %w", e.Type(), e.ID(), err)
	}
	return Merge(data, harvested), nil
}

// Attempts formats data with every template, in order. Failures are reported in the
// returned attempts, never as a panic or an early return.
func Attempts(data template.Data, templates []*template.Template) []Attempt {
	attempts := make([]Attempt, 0, len(templates))
	for _, tmpl := range templates {
		path, err := tmpl.Format(data)
		attempts = append(attempts, Attempt{Template: tmpl, Path: path, Err: err})
	}
	return attempts
}

// Select picks matches out of attempts. Attempts failing with a *template.FormatError
// are skipped; any other failure is returned.
func Select(attempts []Attempt, mode Mode) ([]Match, error) {
	var matches []Match
	for _, attempt := range attempts {
		if attempt.Err != nil {
			var formatErr *template.FormatError
			if errors.As(attempt.Err, &formatErr) {
				continue
			}
			return nil, attempt.Err
		}
		matches = append(matches, Match{Path: attempt.Path, Template: attempt.Template})
	}
	if len(matches) == 0 {
		return nil, &template.FormatError{
			Reason: fmt.Sprintf("no formattable template among %d candidates", len(attempts)),
			Err:    ErrNoFormattableTemplate,
		}
	}

	switch mode {
	case All:
		return matches, nil
	case BestMatch:
		best := matches[0]
		for _, match := range matches[1:] {
			if match.Template.KeyCount() > best.Template.KeyCount() {
				best = match
			}
		}
		return []Match{best}, nil
	}
	return nil, fmt.Errorf("unknown resolve mode %s", mode)
}

// Parse returns the data parsed by the first template matching candidate.
func Parse(candidate string, templates []*template.Template) (template.Data, *template.Template, error) {
	for _, tmpl := range templates {
		data, err := tmpl.Parse(candidate)
		if err == nil {
			return data, tmpl, nil
		}
	}
	return nil, nil, &template.ParseError{
		Candidate: candidate,
		Reason:    fmt.Sprintf("no parsable template among %d candidates", len(templates)),
		Err:       ErrNoParsableTemplate,
	}
}
