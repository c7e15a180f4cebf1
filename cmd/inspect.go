package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/fairsailau/congabox2/internal/docx"
	"github.com/fairsailau/congabox2/internal/model"
	"github.com/fairsailau/congabox2/internal/schema"
	"github.com/fairsailau/congabox2/internal/soql"
	"github.com/spf13/cobra"
)

var (
	inspectTemplate  string
	inspectQuery     string
	inspectQueryText string
	inspectSchema    string
)

// inspect parses the input artifacts locally without touching the Box API,
// so a template/query/schema trio can be sanity-checked before conversion.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parse input artifacts locally and show the extracted structure",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectTemplate == "" && inspectQuery == "" && inspectQueryText == "" && inspectSchema == "" {
			return fmt.Errorf("nothing to inspect: pass --template, --query, --query-text or --schema")
		}

		var queryInfo *model.QueryInfo
		var index *model.SchemaIndex

		if inspectTemplate != "" {
			parser := docx.NewParser()
			if cfg.Convert.ContextChars > 0 {
				parser.ContextChars = cfg.Convert.ContextChars
			}
			_, fields, err := parser.ParseFile(inspectTemplate)
			if err != nil {
				return err
			}

			fmt.Printf("Merge fields (%d)\n", len(fields))
			for _, f := range fields {
				fmt.Printf("  %s\n", f.Original)
				if f.Context != "" {
					fmt.Printf("    context: %s\n", f.Context)
				}
			}
			fmt.Println()
		}

		queryText := inspectQueryText
		if inspectQuery != "" {
			qb, err := os.ReadFile(inspectQuery)
			if err != nil {
				return fmt.Errorf("reading query: %w", err)
			}
			queryText = string(qb)
		}
		if queryText != "" {
			info, err := soql.Parse(queryText)
			if err != nil {
				return err
			}
			queryInfo = info

			fmt.Printf("Query\n")
			fmt.Printf("  main object: %s\n", info.MainObject)
			fmt.Printf("  fields: %v\n", info.Fields)
			if info.Conditions != "" {
				fmt.Printf("  conditions: %s\n", info.Conditions)
			}
			for _, rel := range sortedRelKeys(info.Relationships) {
				fmt.Printf("  relationship %s: %v\n", rel, info.Relationships[rel])
			}
			fmt.Println()
		}

		if inspectSchema != "" {
			f, err := os.Open(inspectSchema)
			if err != nil {
				return fmt.Errorf("reading schema: %w", err)
			}
			index, err = schema.Parse(f)
			f.Close()
			if err != nil {
				return err
			}

			var names []string
			for name := range index.Objects {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("Schema objects (%d)\n", len(names))
			for _, name := range names {
				obj := index.Objects[name]
				fmt.Printf("  %s: %d fields, %d relationships\n", name, len(obj.Fields), len(obj.Relationships))
			}
			for _, c := range index.Collisions {
				fmt.Printf("  collision: %q claimed by %s and %s\n", c.Name, c.FirstPath, c.Path)
			}
			fmt.Println()
		}

		// With both a query and a schema, check each field path against the
		// schema the way a reviewer would.
		if queryInfo != nil && index != nil {
			fmt.Printf("Field path resolution\n")
			for _, path := range soql.FieldPaths(queryInfo) {
				if fm := schema.FindFieldMapping(index, path); fm != nil {
					fmt.Printf("  %s -> %s.%s (%s)\n", path, fm.Object, fm.Field, fm.Info.Type)
				} else {
					fmt.Printf("  %s -> not found in schema\n", path)
				}
			}
		}

		return nil
	},
}

func sortedRelKeys(rels map[string][]string) []string {
	keys := make([]string, 0, len(rels))
	for k := range rels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	inspectCmd.Flags().StringVar(&inspectTemplate, "template", "", "Conga template DOCX file")
	inspectCmd.Flags().StringVar(&inspectQuery, "query", "", "SOQL query text file")
	inspectCmd.Flags().StringVar(&inspectQueryText, "query-text", "", "SOQL query passed inline")
	inspectCmd.Flags().StringVar(&inspectSchema, "schema", "", "Box-Salesforce JSON schema file")
	rootCmd.AddCommand(inspectCmd)
}
