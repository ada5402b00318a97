// Package template compiles path templates such as "{project}/{#asset.name}_v{version}"
// into reusable values that can both parse concrete paths into structured data and
// format structured data back into paths.
//
// A placeholder is written {name} or {name:expression}. The name may contain letters,
// digits, underscores and the structural markers '#' (namespace), '.' (nested key)
// and '@' (template reference). The expression is a regular expression; braces inside
// it are escaped as \{ and \}. Without an expression a placeholder matches one or
// more characters other than the path separator.
package template

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// Template is a compiled pattern. It is immutable and safe for concurrent use.
type Template struct {
	pattern    string
	config     Config
	segments   []segment
	regexp     *regexp.Regexp
	groups     []group
	keys       *set.Set[string]
	references *set.Set[string]
}

// group ties a regexp submatch index to the label it was compiled under.
type group struct {
	index int
	label string
}

// New compiles pattern. Compilation is a pure function of the pattern and options;
// repeated placeholder names are numbered with a counter local to this call.
func New(pattern string, options ...Option) (*Template, error) {
	config := Config{}
	for _, option := range options {
		option(&config)
	}
	config.normalize()

	segments, err := scan(pattern)
	if err != nil {
		return nil, err
	}

	t := &Template{
		pattern:    pattern,
		config:     config,
		segments:   segments,
		keys:       set.New[string](len(segments)),
		references: set.New[string](0),
	}

	counter := make(labelCounter)
	var source strings.Builder
	if config.Anchor != AnchorEnd {
		source.WriteString("^")
	}
	labels := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.placeholder == nil {
			source.WriteString(regexp.QuoteMeta(seg.literal))
			continue
		}

		p := seg.placeholder
		label, n := counter.next(p.name)
		if n > maxSequence {
			return nil, malformed(pattern, p.offset, fmt.Sprintf("placeholder %q repeated more than %d times", p.name, maxSequence))
		}
		p.label = label

		expression := p.expression
		if expression == "" {
			expression = config.DefaultExpression
		}
		p.matcher, err = regexp.Compile("^(?:" + expression + ")$")
		if err != nil {
			return nil, &MalformedPatternError{
				Pattern: pattern,
				Offset:  p.offset,
				Reason:  fmt.Sprintf("invalid expression for %q", p.name),
				Err:     err,
			}
		}
		for _, name := range p.matcher.SubexpNames() {
			if name != "" {
				return nil, malformed(pattern, p.offset, fmt.Sprintf("named group %q in expression for %q", name, p.name))
			}
		}

		fmt.Fprintf(&source, "(?P<%s>%s)", label, expression)
		labels = append(labels, label)
		t.keys.Insert(p.name)
		if p.isReference() {
			t.references.Insert(p.name)
		}
	}
	if config.Anchor != AnchorStart {
		source.WriteString("$")
	}

	t.regexp, err = regexp.Compile(source.String())
	if err != nil {
		return nil, &MalformedPatternError{Pattern: pattern, Offset: -1, Reason: "invalid expression", Err: err}
	}
	for _, label := range labels {
		t.groups = append(t.groups, group{index: t.regexp.SubexpIndex(label), label: label})
	}
	return t, nil
}

// MustNew is like New but panics when the pattern is malformed.
func MustNew(pattern string, options ...Option) *Template {
	t, err := New(pattern, options...)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the pattern the template was compiled from.
func (t *Template) Pattern() string {
	return t.pattern
}

func (t *Template) String() string {
	return t.pattern
}

// Expression returns the source of the compiled regular expression.
func (t *Template) Expression() string {
	return t.regexp.String()
}

// Keys returns the distinct placeholder names of the template, sorted.
func (t *Template) Keys() []string {
	return sorted(t.keys)
}

// KeySet returns a copy of the template's key set.
func (t *Template) KeySet() *set.Set[string] {
	return t.keys.Copy()
}

// KeyCount returns the number of distinct placeholder names.
func (t *Template) KeyCount() int {
	return t.keys.Size()
}

// References returns the placeholder names carrying the '@' template reference
// marker. References are not expanded; Format expects them pre-resolved in the data.
func (t *Template) References() []string {
	return sorted(t.references)
}

// Parse extracts data from candidate. Dotted names produce nested maps and all
// captured values are strings. A repeated placeholder resolves according to the
// template's DuplicateMode: by default the last occurrence wins.
func (t *Template) Parse(candidate string) (Data, error) {
	match := t.regexp.FindStringSubmatch(candidate)
	if match == nil {
		return nil, &ParseError{Pattern: t.pattern, Candidate: candidate, Reason: "no match"}
	}

	data := make(Data)
	captured := make(map[string]string, len(t.groups))
	for _, g := range t.groups {
		value := match[g.index]
		name, err := decodeLabel(g.label)
		if err != nil {
			return nil, &ParseError{Pattern: t.pattern, Candidate: candidate, Reason: err.Error(), Err: err}
		}
		if previous, ok := captured[name]; ok && previous != value && t.config.Duplicates == DuplicateStrict {
			return nil, &ParseError{
				Pattern:   t.pattern,
				Candidate: candidate,
				Key:       name,
				Reason:    fmt.Sprintf("conflicting values %q and %q", previous, value),
			}
		}
		captured[name] = value
		if err := insertPath(data, strings.Split(name, nestingMarker), value); err != nil {
			return nil, &ParseError{Pattern: t.pattern, Candidate: candidate, Key: name, Reason: err.Error(), Err: err}
		}
	}
	return data, nil
}

// Format substitutes data into the template. Integers are zero-padded to the
// configured width. Format never mutates data.
//
// Unlike plain substitution, every value must also satisfy its placeholder
// expression, so the result parses back with the same template. With the default
// expression a value containing the separator fails: "{name}" cannot be formatted
// with "a/b", while "{name:.+}" can.
func (t *Template) Format(data Data) (string, error) {
	var builder strings.Builder
	for _, seg := range t.segments {
		if seg.placeholder == nil {
			builder.WriteString(seg.literal)
			continue
		}

		p := seg.placeholder
		value, missing, ok := lookupPath(data, p.path)
		if !ok {
			reason := fmt.Sprintf("missing key %q", missing)
			if p.isReference() {
				reason = "template reference is not resolved"
			}
			return "", &FormatError{Pattern: t.pattern, Key: p.name, Reason: reason}
		}
		formatted, ok := FormatValue(value, t.config.Padding)
		if !ok {
			return "", &FormatError{
				Pattern: t.pattern,
				Key:     p.name,
				Reason:  fmt.Sprintf("value of type %T is not formattable", value),
			}
		}
		if !p.matcher.MatchString(formatted) {
			return "", &FormatError{
				Pattern: t.pattern,
				Key:     p.name,
				Reason:  fmt.Sprintf("value %q does not match %q", formatted, p.matcher.String()),
			}
		}
		builder.WriteString(formatted)
	}
	return builder.String(), nil
}

func sorted(s *set.Set[string]) []string {
	items := s.Slice()
	slices.Sort(items)
	return items
}
