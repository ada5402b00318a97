package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/git-hulk/pathtemplate"
	"github.com/git-hulk/pathtemplate/pkg/entity"
	"github.com/git-hulk/pathtemplate/pkg/resolver"
	"github.com/git-hulk/pathtemplate/pkg/template"
)

type parseOutput struct {
	Template string        `yaml:"template"`
	Data     template.Data `yaml:"data"`
}

func newParseCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "parse PATH",
		Short: "Parse a path with the first matching template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, engine.Close()) }()

			data, name, err := engine.Parse(args[0])
			if err != nil {
				return err
			}
			return writeYAML(cmd, parseOutput{Template: name, Data: data})
		},
	}
}

func newFormatCmd(flags *globalFlags) *cobra.Command {
	var (
		dataFile string
		sets     []string
	)
	cmd := &cobra.Command{
		Use:   "format NAME",
		Short: "Format data with the named template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			data, err := loadData(dataFile, sets)
			if err != nil {
				return err
			}
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, engine.Close()) }()

			path, err := engine.Format(args[0], data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", dataFlagUsage)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "data value as key=value, dotted keys set nested values")
	return cmd
}

type resolveOutput struct {
	Template string `yaml:"template"`
	Path     string `yaml:"path"`
}

type resolveOptions struct {
	dataFile   string
	sets       []string
	entityFile string
	entityRef  string
	depth      int
	all        bool
	location   string
	prefix     string
	register   bool
}

func newResolveCmd(flags *globalFlags) *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Format data, completed from an entity, with the best template",
		Long: `Format the data with every template and print the template with the most keys
(or every template that succeeded with --all).

Entity data is read from a YAML entity graph (--entity) or fetched from the server
(--server with --entity-ref Type/ID) and exposed to placeholders such as
{#asset.name} or {#project.name}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if opts.register && opts.location == "" {
				return errors.New("--register requires --location")
			}
			data, err := loadData(opts.dataFile, opts.sets)
			if err != nil {
				return err
			}
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, engine.Close()) }()

			ent, err := opts.entity(cmd, engine)
			if err != nil {
				return err
			}
			if opts.location != "" {
				return opts.resolveLocation(cmd, engine, ent, data)
			}

			mode := resolver.BestMatch
			if opts.all {
				mode = resolver.All
			}
			matches, err := engine.Resolve(cmd.Context(), data, ent, mode)
			if err != nil {
				return err
			}
			output := make([]resolveOutput, 0, len(matches))
			for _, match := range matches {
				name, _ := engine.Name(match.Template)
				output = append(output, resolveOutput{Template: name, Path: match.Path})
			}
			return writeYAML(cmd, output)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dataFile, "data", "", dataFlagUsage)
	f.StringArrayVar(&opts.sets, "set", nil, "data value as key=value, dotted keys set nested values")
	f.StringVar(&opts.entityFile, "entity", "", "YAML file with the entity graph")
	f.StringVar(&opts.entityRef, "entity-ref", "", "entity to fetch from the server as Type/ID")
	f.IntVar(&opts.depth, "depth", 3, "relation hops fetched around --entity-ref")
	f.BoolVar(&opts.all, "all", false, "print every template that can be formatted")
	f.StringVar(&opts.location, "location", "", "resolve a resource identifier in the named location")
	f.StringVar(&opts.prefix, "prefix", "", "storage root of --location")
	f.BoolVar(&opts.register, "register", false, "register the resource identifier with the server")
	return cmd
}

func (o *resolveOptions) entity(cmd *cobra.Command, engine *pathtemplate.Engine) (entity.Entity, error) {
	switch {
	case o.entityFile != "" && o.entityRef != "":
		return nil, errors.New("--entity and --entity-ref are mutually exclusive")
	case o.entityFile != "":
		return entity.LoadYAMLFile(o.entityFile)
	case o.entityRef != "":
		typ, id, ok := strings.Cut(o.entityRef, "/")
		if !ok || typ == "" || id == "" {
			return nil, fmt.Errorf("invalid entity reference %q, must be Type/ID", o.entityRef)
		}
		return engine.Fetch(cmd.Context(), entity.Reference{Type: typ, ID: id}, o.depth)
	}
	return nil, nil
}

func (o *resolveOptions) resolveLocation(cmd *cobra.Command, engine *pathtemplate.Engine, ent entity.Entity, data template.Data) error {
	loc, err := engine.Location(o.location, o.prefix)
	if err != nil {
		return err
	}
	if o.register {
		registration, err := loc.Register(cmd.Context(), ent, data)
		if err != nil {
			return err
		}
		return writeYAML(cmd, registration)
	}
	identifier, tmpl, err := loc.ResourceIdentifier(cmd.Context(), ent, data)
	if err != nil {
		return err
	}
	name, _ := engine.Name(tmpl)
	return writeYAML(cmd, resolveOutput{Template: name, Path: identifier})
}
