package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/artpar/bizadmin/core/schema"
)

var modulesOutput string

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Short:   "List the modules of the catalog",
	GroupID: "admin",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile, catalogFile)
		if err != nil {
			return err
		}
		catalog, err := schema.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		return printModules(cmd.OutOrStdout(), catalog, modulesOutput)
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)

	modulesCmd.Flags().StringVarP(&modulesOutput, "output", "O", "table", "Output format: table, json")
}

type moduleSummary struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Endpoint string   `json:"endpoint"`
	Columns  []string `json:"columns"`
	Fields   []string `json:"fields"`
}

func summarize(mod schema.ModuleConfig) moduleSummary {
	s := moduleSummary{Key: mod.Key, Title: mod.Title, Endpoint: mod.Endpoint}
	for _, c := range mod.Table.Columns {
		s.Columns = append(s.Columns, c.Key)
	}
	for _, f := range mod.Fields() {
		s.Fields = append(s.Fields, f.Key)
	}
	return s
}

func printModules(w io.Writer, catalog *schema.Catalog, output string) error {
	mods := catalog.Modules()
	switch output {
	case "json":
		out := make([]moduleSummary, 0, len(mods))
		for _, mod := range mods {
			out = append(out, summarize(mod))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tTITLE\tENDPOINT\tCOLUMNS\tFIELDS")
		for _, mod := range mods {
			s := summarize(mod)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				s.Key, s.Title, s.Endpoint, strings.Join(s.Columns, ","), strings.Join(s.Fields, ","))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
