package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/git-hulk/pathtemplate"
	"github.com/git-hulk/pathtemplate/pkg/logger"
	"github.com/git-hulk/pathtemplate/pkg/registry"
	"github.com/git-hulk/pathtemplate/pkg/template"
)

// globalFlags are shared by every command.
type globalFlags struct {
	logLevel      string
	templates     []string
	templatesFile string
	separator     string
	padding       int
	strict        bool
	server        string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "pathtemplate",
		Short: "Format data into paths and parse paths back into data",
		Long: `pathtemplate - bidirectional path templates

Templates are given as name=pattern pairs, e.g.

  pathtemplate parse -t shot='{project}/{sequence}/{shot}' film/sq010/sh020`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initLogger(flags.logLevel)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error), defaults to $"+logger.EnvLevel)
	pf.StringArrayVarP(&flags.templates, "template", "t", nil, "template as name=pattern, repeatable, tried in order")
	pf.StringVar(&flags.templatesFile, "templates", "", "YAML file with a list of {name, pattern} templates")
	pf.StringVar(&flags.separator, "separator", template.DefaultSeparator, "separator excluded by the default placeholder expression")
	pf.IntVar(&flags.padding, "padding", template.DefaultPadding, "zero padding applied to integers when formatting")
	pf.BoolVar(&flags.strict, "strict", false, "fail parsing when duplicate placeholders capture different values")
	pf.StringVar(&flags.server, "server", "", "base URL of the entity and registration server")

	root.AddCommand(
		newParseCmd(flags),
		newFormatCmd(flags),
		newResolveCmd(flags),
	)
	return root
}

func initLogger(level string) error {
	config, err := logger.ConfigFromEnv()
	if err != nil {
		return err
	}
	if level != "" {
		if config.Level, err = logger.ParseLevel(level); err != nil {
			return err
		}
	}
	return logger.Init(config)
}

// engine builds an engine holding the templates given on the command line, the file
// ones first.
func (f *globalFlags) engine() (*pathtemplate.Engine, error) {
	templateOptions := []template.Option{
		template.WithSeparator(f.separator),
		template.WithPadding(f.padding),
	}
	if f.strict {
		templateOptions = append(templateOptions, template.WithDuplicateMode(template.DuplicateStrict))
	}
	options := []pathtemplate.Option{
		pathtemplate.WithTemplateOptions(templateOptions...),
		pathtemplate.WithLogger(logger.Get()),
	}
	if f.server != "" {
		options = append(options, pathtemplate.WithServer(f.server))
	}
	engine := pathtemplate.New(options...)

	definitions, err := f.definitions()
	if err != nil {
		return nil, err
	}
	if len(definitions) == 0 {
		return nil, errors.New("no templates given, use --template or --templates")
	}
	if err := engine.Load(definitions); err != nil {
		return nil, err
	}
	logger.Get().Debug("templates loaded", zap.Int("count", len(definitions)))
	return engine, nil
}

func (f *globalFlags) definitions() ([]registry.Definition, error) {
	var definitions []registry.Definition
	if f.templatesFile != "" {
		raw, err := os.ReadFile(f.templatesFile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &definitions); err != nil {
			return nil, fmt.Errorf("failed to decode templates file: %w", err)
		}
	}
	for _, value := range f.templates {
		name, pattern, ok := strings.Cut(value, "=")
		if !ok {
			return nil, fmt.Errorf("invalid template %q, must be name=pattern", value)
		}
		definitions = append(definitions, registry.Definition{Name: name, Pattern: pattern})
	}
	return definitions, nil
}

func writeYAML(cmd *cobra.Command, value any) error {
	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	return encoder.Close()
}

// unquotedNamespaceKey matches a line such as `#asset:` that YAML treats as a comment.
var unquotedNamespaceKey = regexp.MustCompile(`(?m)^[ \t]*#[A-Za-z0-9_]+:`)

const dataFlagUsage = `YAML file with the data mapping, namespace keys must be quoted ("#asset": {name: Crate})`

// loadData reads a YAML mapping and applies key=value overrides. Dotted keys set
// nested values, so "#asset.name=Crate" fills the asset namespace.
func loadData(path string, sets []string) (template.Data, error) {
	data := template.Data{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if key := unquotedNamespaceKey.Find(raw); key != nil {
			return nil, fmt.Errorf("data file %s: namespace key %s is read as a YAML comment, quote it",
				path, strings.TrimSpace(string(key)))
		}
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode data file: %w", err)
		}
		if data == nil {
			data = template.Data{}
		}
	}
	for _, value := range sets {
		key, v, ok := strings.Cut(value, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q, must be key=value", value)
		}
		if err := setPath(data, strings.Split(key, "."), v); err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", value, err)
		}
	}
	return data, nil
}

func setPath(data map[string]any, path []string, value string) error {
	if len(path) == 1 {
		data[path[0]] = value
		return nil
	}
	child, ok := data[path[0]]
	if !ok {
		nested := map[string]any{}
		data[path[0]] = nested
		return setPath(nested, path[1:], value)
	}
	nested, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("%q is not a mapping", path[0])
	}
	return setPath(nested, path[1:], value)
}
