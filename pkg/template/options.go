package template

import "regexp"

// Anchor controls which ends of a candidate string a template must match.
type Anchor int

const (
	AnchorBoth Anchor = iota
	AnchorStart
	AnchorEnd
)

// DuplicateMode controls how Parse treats a placeholder name that occurs more than
// once in a pattern.
type DuplicateMode int

const (
	// DuplicateRelaxed keeps the value captured by the last occurrence.
	DuplicateRelaxed DuplicateMode = iota
	// DuplicateStrict fails the parse when occurrences captured different values.
	DuplicateStrict
)

const (
	DefaultSeparator = "/"
	DefaultPadding   = 3
)

// Config holds the compile options of a template.
type Config struct {
	// Separator is excluded from the default placeholder expression.
	// Default is "/".
	Separator string
	// DefaultExpression overrides the expression used by placeholders that
	// declare none. Default is one or more characters other than Separator.
	DefaultExpression string
	// Padding is the zero-padded width of integers substituted by Format.
	// Default is 3.
	Padding int
	// Anchor selects which ends of the candidate must be matched. Default is AnchorBoth.
	Anchor Anchor
	// Duplicates selects the parse policy for repeated placeholder names.
	// Default is DuplicateRelaxed (last occurrence wins).
	Duplicates DuplicateMode
}

func (c *Config) normalize() {
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	if c.DefaultExpression == "" {
		c.DefaultExpression = "[^" + regexp.QuoteMeta(c.Separator) + "]+"
	}
	if c.Padding <= 0 {
		c.Padding = DefaultPadding
	}
}

// Option configures template compilation.
type Option func(*Config)

func WithSeparator(separator string) Option {
	return func(c *Config) {
		c.Separator = separator
	}
}

func WithDefaultExpression(expression string) Option {
	return func(c *Config) {
		c.DefaultExpression = expression
	}
}

func WithPadding(padding int) Option {
	return func(c *Config) {
		c.Padding = padding
	}
}

func WithAnchor(anchor Anchor) Option {
	return func(c *Config) {
		c.Anchor = anchor
	}
}

func WithDuplicateMode(mode DuplicateMode) Option {
	return func(c *Config) {
		c.Duplicates = mode
	}
}
