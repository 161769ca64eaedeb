// Package cli provides a CLI channel that generates commands from the module
// catalog. Every module gets list, get, create, update and delete commands
// backed by the same table and form interpreters as the web UI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/artpar/bizadmin/core/convention"
	"github.com/artpar/bizadmin/core/form"
	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
)

// Source resolves the long-lived table of a module. It is called when a
// command runs, not when it is registered.
type Source func(ctx context.Context, key string) (*table.Table, error)

// Options configures a channel.
type Options struct {
	// Formatters defaults to formatter.DefaultRegistry.
	Formatters *formatter.Registry

	// Cells formats currency and dates in table output.
	Cells formatter.Cells

	// Stdin, Stdout and Stderr default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive enables prompting for missing input. When nil it is
	// true if stdin is a terminal.
	Interactive *bool
}

// Channel implements the CLI channel for modules.
type Channel struct {
	rootCmd     *cobra.Command
	source      Source
	modules     map[string]schema.ModuleConfig
	formatters  *formatter.Registry
	cells       formatter.Cells
	prompter    *Prompter
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
}

// New creates a new CLI channel.
func New(rootCmd *cobra.Command, source Source, opts Options) *Channel {
	c := &Channel{
		rootCmd:    rootCmd,
		source:     source,
		modules:    make(map[string]schema.ModuleConfig),
		formatters: opts.Formatters,
		cells:      opts.Cells,
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
	}
	if c.formatters == nil {
		c.formatters = formatter.DefaultRegistry
	}
	if c.cells.Symbol == "" {
		c.cells = formatter.DefaultCells
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.stderr == nil {
		c.stderr = os.Stderr
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	if opts.Interactive != nil {
		c.interactive = *opts.Interactive
	} else if f, ok := stdin.(*os.File); ok {
		c.interactive = term.IsTerminal(int(f.Fd()))
	}
	c.prompter = NewPrompter(stdin, c.stdout)
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "cli"
}

// Register adds the command group of a module. Modules whose key collides
// with an existing command are skipped.
func (c *Channel) Register(mod schema.ModuleConfig) error {
	if _, exists := c.modules[mod.Key]; exists {
		return fmt.Errorf("module %q already registered", mod.Key)
	}
	for _, cmd := range c.rootCmd.Commands() {
		if cmd.Name() == mod.Key || cmd.HasAlias(mod.Key) {
			return fmt.Errorf("module %q collides with the %q command", mod.Key, cmd.Name())
		}
	}
	c.modules[mod.Key] = mod

	moduleCmd := &cobra.Command{
		Use:     mod.Key,
		Short:   fmt.Sprintf("Manage %s", mod.Title),
		GroupID: groupID(c.rootCmd),
	}
	moduleCmd.AddCommand(
		c.buildListCommand(mod),
		c.buildGetCommand(mod),
		c.buildCreateCommand(mod),
		c.buildUpdateCommand(mod),
		c.buildDeleteCommand(mod),
	)
	c.rootCmd.AddCommand(moduleCmd)
	return nil
}

// RegisterAll registers every catalog module and returns the ones that
// were skipped.
func (c *Channel) RegisterAll(catalog *schema.Catalog) []error {
	var errs []error
	for _, mod := range catalog.Modules() {
		if err := c.Register(mod); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ModuleGroup is the cobra group id under which module commands are listed
// when the root command defines it.
const ModuleGroup = "modules"

func groupID(root *cobra.Command) string {
	if root.ContainsGroup(ModuleGroup) {
		return ModuleGroup
	}
	return ""
}

func (c *Channel) buildListCommand(mod schema.ModuleConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", mod.Title),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(commandContext(cmd), mod.Key)
			if err != nil {
				return c.formatError(cmd, err)
			}

			search, _ := cmd.Flags().GetString("search")
			sortKey, _ := cmd.Flags().GetString("sort")
			desc, _ := cmd.Flags().GetBool("desc")
			page, _ := cmd.Flags().GetInt("page")
			pageSize, _ := cmd.Flags().GetInt("page-size")
			all, _ := cmd.Flags().GetBool("all")

			q := table.Query{
				Search:   search,
				Sort:     table.SortState{Key: sortKey, Desc: desc},
				Page:     page,
				PageSize: pageSize,
			}
			if all {
				q.Page, q.PageSize = 1, max(t.View(table.Query{}).Cached, 1)
			}
			if sortKey != "" {
				if col, ok := mod.Column(sortKey); !ok || !col.Sorter {
					return c.formatError(cmd, fmt.Errorf("column %q is not sortable", sortKey))
				}
			}

			v := t.View(q)
			records := make([]schema.Record, 0, len(v.Rows))
			for _, row := range v.Rows {
				records = append(records, row.Record)
			}
			if err := c.formatList(cmd, mod, records); err != nil {
				return err
			}
			if c.outputName(cmd) == "table" && v.Total > 0 {
				fmt.Fprintf(c.stdout, "\nPage %d of %d (%d %s)\n", v.Page, v.Pages, v.Total, plural(v.Total, "record"))
			}
			return nil
		},
	}

	cmd.Flags().StringP("search", "s", "", "Case-insensitive search over searchable columns")
	cmd.Flags().String("sort", "", "Sort by a sortable column")
	cmd.Flags().Bool("desc", false, "Sort descending")
	cmd.Flags().IntP("page", "p", 1, "Page number")
	cmd.Flags().Int("page-size", 0, "Rows per page (default from config)")
	cmd.Flags().Bool("all", false, "Show every matching record")
	c.addOutputFlags(cmd)

	return cmd
}

func (c *Channel) buildGetCommand(mod schema.ModuleConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show one %s record", convention.Singular(mod.Title)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.load(commandContext(cmd), mod.Key)
			if err != nil {
				return c.formatError(cmd, err)
			}
			rec, ok := t.Record(args[0])
			if !ok {
				return c.formatError(cmd, fmt.Errorf("%s %q: %w", mod.Key, args[0], table.ErrRecordNotFound))
			}
			return c.formatRecord(cmd, mod, rec)
		},
	}

	c.addOutputFlags(cmd)

	return cmd
}

func (c *Channel) buildCreateCommand(mod schema.ModuleConfig) *cobra.Command {
	singular := convention.Singular(mod.Title)
	cmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a new %s record", singular),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			t, err := c.table(ctx, mod.Key)
			if err != nil {
				return c.formatError(cmd, err)
			}

			f := t.NewForm()
			if err := f.Load(ctx); err != nil {
				return c.formatError(cmd, err)
			}
			c.bindFlags(cmd, f)
			c.warnOptions(f)

			if missing := missingRequired(f); len(missing) > 0 {
				if !c.interactive {
					return c.formatError(cmd, fmt.Errorf("required %s not provided: %s", plural(len(missing), "field"), strings.Join(missing, ", ")))
				}
				if err := c.prompter.PromptForInputs(f); err != nil {
					return err
				}
			}

			var created schema.Record
			err = f.Submit(ctx, func(ctx context.Context, rec schema.Record) error {
				var err error
				created, err = t.Create(ctx, rec)
				return err
			})
			if err != nil {
				return c.formatError(cmd, err)
			}

			if c.structured(cmd) {
				return c.formatRecord(cmd, mod, created)
			}
			id, _ := created.ID()
			fmt.Fprintf(c.stdout, "Created %s: %s\n", singular, orPlaceholder(id))
			return nil
		},
	}

	c.addFieldFlags(cmd, mod)
	c.addOutputFlags(cmd)

	return cmd
}

func (c *Channel) buildUpdateCommand(mod schema.ModuleConfig) *cobra.Command {
	singular := convention.Singular(mod.Title)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			t, err := c.table(ctx, mod.Key)
			if err != nil {
				return c.formatError(cmd, err)
			}

			f, err := t.EditForm(ctx, args[0])
			if err != nil {
				return c.formatError(cmd, err)
			}
			if err := f.Load(ctx); err != nil {
				return c.formatError(cmd, err)
			}
			if c.bindFlags(cmd, f) == 0 {
				return c.formatError(cmd, errors.New("no fields to update"))
			}
			c.warnOptions(f)

			var updated schema.Record
			err = f.Submit(ctx, func(ctx context.Context, rec schema.Record) error {
				var err error
				updated, err = t.Update(ctx, args[0], rec)
				return err
			})
			if err != nil {
				return c.formatError(cmd, err)
			}

			if c.structured(cmd) {
				return c.formatRecord(cmd, mod, updated)
			}
			fmt.Fprintf(c.stdout, "Updated %s: %s\n", singular, args[0])
			return nil
		},
	}

	c.addFieldFlags(cmd, mod)
	c.addOutputFlags(cmd)

	return cmd
}

func (c *Channel) buildDeleteCommand(mod schema.ModuleConfig) *cobra.Command {
	singular := convention.Singular(mod.Title)
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				question := fmt.Sprintf("Delete %s %s?", singular, args[0])
				if !c.interactive {
					fmt.Fprintf(c.stdout, "%s (use --force to confirm)\n", question)
					return nil
				}
				ok, err := c.prompter.Confirm(question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(c.stdout, "Cancelled.")
					return nil
				}
			}

			t, err := c.table(commandContext(cmd), mod.Key)
			if err != nil {
				return c.formatError(cmd, err)
			}
			if err := t.Delete(commandContext(cmd), args[0]); err != nil {
				return c.formatError(cmd, err)
			}

			fmt.Fprintf(c.stdout, "Deleted %s: %s\n", singular, args[0])
			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Delete without confirmation")
	c.addOutputFlags(cmd)

	return cmd
}

func (c *Channel) table(ctx context.Context, key string) (*table.Table, error) {
	return c.source(ctx, key)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// load resolves a module table and fetches its list. A CLI invocation
// always reads fresh data.
func (c *Channel) load(ctx context.Context, key string) (*table.Table, error) {
	t, err := c.source(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := t.Load(ctx); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return t, nil
}

// addFieldFlags adds one flag per form field. Multi-selects accept a
// comma-separated list or a repeated flag.
func (c *Channel) addFieldFlags(cmd *cobra.Command, mod schema.ModuleConfig) {
	for _, fd := range mod.Fields() {
		usage := fd.Label
		if hint := fieldHint(fd); hint != "" {
			usage += " " + hint
		}
		if fd.Required {
			usage += " (required)"
		}
		if fd.Type == schema.FieldMultiSelect {
			cmd.Flags().StringSlice(fd.Key, nil, usage)
		} else {
			cmd.Flags().String(fd.Key, "", usage)
		}
	}
}

// bindFlags copies the flags that were set into the form and returns how
// many there were.
func (c *Channel) bindFlags(cmd *cobra.Command, f *form.Form) int {
	n := 0
	for _, fd := range f.Fields() {
		if !cmd.Flags().Changed(fd.Key) {
			continue
		}
		n++
		if fd.Type == schema.FieldMultiSelect {
			vals, _ := cmd.Flags().GetStringSlice(fd.Key)
			f.Set(fd.Key, vals...)
			continue
		}
		val, _ := cmd.Flags().GetString(fd.Key)
		f.Set(fd.Key, val)
	}
	return n
}

func (c *Channel) warnOptions(f *form.Form) {
	for _, in := range f.Inputs() {
		if in.Warning != "" {
			fmt.Fprintf(c.stderr, "warning: %s: %s\n", in.Field.Label, in.Warning)
		}
	}
}

func missingRequired(f *form.Form) []string {
	values := f.Values()
	var missing []string
	for _, fd := range f.Fields() {
		if !fd.Required {
			continue
		}
		if isBlank(values[fd.Key]) {
			missing = append(missing, fd.Key)
		}
	}
	return missing
}

func isBlank(vals []string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func fieldHint(fd schema.FieldDef) string {
	switch fd.Type {
	case schema.FieldDate:
		return "(" + form.DateLayout + ")"
	case schema.FieldNumber, schema.FieldCurrency:
		switch {
		case fd.Min != nil && fd.Max != nil:
			return fmt.Sprintf("(%g..%g)", *fd.Min, *fd.Max)
		case fd.Min != nil:
			return fmt.Sprintf("(>= %g)", *fd.Min)
		case fd.Max != nil:
			return fmt.Sprintf("(<= %g)", *fd.Max)
		}
	case schema.FieldSelect, schema.FieldMultiSelect:
		if fd.Relation != nil {
			return fmt.Sprintf("(%s id)", fd.Relation.Module)
		}
		vals := make([]string, 0, len(fd.Options))
		for _, o := range fd.Options {
			vals = append(vals, schema.FormatID(o.Value))
		}
		return "[" + strings.Join(vals, "/") + "]"
	}
	return ""
}

// addOutputFlags adds common output format flags to a command.
func (c *Channel) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "O", "table", "Output format: "+strings.Join(c.formatters.List(), ", "))
	cmd.Flags().Bool("no-header", false, "Disable header row (table format)")
	cmd.Flags().Bool("compact", false, "Compact output (json)")
}

func (c *Channel) outputName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("output")
	if _, ok := c.formatters.Get(name); !ok {
		return c.formatters.Default().Name()
	}
	return name
}

// structured reports whether the output should be machine readable.
func (c *Channel) structured(cmd *cobra.Command) bool {
	name := c.outputName(cmd)
	return name == "json" || name == "yaml"
}

// getFormatter returns the formatter for the current command.
func (c *Channel) getFormatter(cmd *cobra.Command) formatter.Formatter {
	f, _ := c.formatters.Get(c.outputName(cmd))
	return f
}

// getFormatOptions builds format options from command flags.
func (c *Channel) getFormatOptions(cmd *cobra.Command) formatter.FormatOptions {
	noHeader, _ := cmd.Flags().GetBool("no-header")
	compact, _ := cmd.Flags().GetBool("compact")

	cells := c.cells
	return formatter.FormatOptions{
		NoHeader: noHeader,
		Compact:  compact,
		MaxWidth: 40,
		Cells:    &cells,
	}
}

func (c *Channel) formatList(cmd *cobra.Command, mod schema.ModuleConfig, records []schema.Record) error {
	return c.getFormatter(cmd).FormatList(c.stdout, mod, records, c.getFormatOptions(cmd))
}

func (c *Channel) formatRecord(cmd *cobra.Command, mod schema.ModuleConfig, record schema.Record) error {
	return c.getFormatter(cmd).FormatRecord(c.stdout, mod, record, c.getFormatOptions(cmd))
}

// formatError writes err in the selected format and returns it so cobra
// exits non-zero. Usage is not printed for runtime failures.
func (c *Channel) formatError(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	c.getFormatter(cmd).FormatError(c.stderr, err)
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func orPlaceholder(s string) string {
	if s == "" {
		return formatter.Placeholder
	}
	return s
}
