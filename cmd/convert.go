package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fairsailau/congabox2/internal/boxapi"
	"github.com/fairsailau/congabox2/internal/errlog"
	"github.com/fairsailau/congabox2/internal/mapping"
	"github.com/fairsailau/congabox2/internal/pipeline"
	"github.com/fairsailau/congabox2/internal/store"
	"github.com/spf13/cobra"
)

var (
	convertTemplate  string
	convertQuery     string
	convertQueryText string
	convertSchema    string
	convertOut       string
	convertModel     string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a Conga template to a Box Doc Gen field mapping",
	RunE: func(cmd *cobra.Command, args []string) error {
		if convertQuery == "" && convertQueryText == "" {
			return fmt.Errorf("either --query or --query-text is required")
		}
		if convertModel != "" {
			cfg.Box.Model = convertModel
		}

		client, err := boxapi.NewClient(cfg.Box)
		if err != nil {
			return err
		}

		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		outDir := convertOut
		if outDir == "" {
			outDir = filepath.Join(dataDir, "out")
		}

		logger := newLogger()
		defer logger.Sync()

		cc := &pipeline.ConversionContext{
			Box:    client,
			Config: cfg,
			Errors: errlog.New(logger),
			Store:  s,
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		logVerbose("converting %s using %s", convertTemplate, cfg.Box.Model)

		res, err := pipeline.Run(ctx, cc, pipeline.Inputs{
			TemplatePath: convertTemplate,
			QueryPath:    convertQuery,
			QueryText:    convertQueryText,
			SchemaPath:   convertSchema,
			OutDir:       outDir,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "conversion failed: %v\n\n%s", err, cc.Errors.Format())
			return err
		}

		fmt.Printf("Found %d merge fields, mapped %d.\n\n", len(res.MergeFields), len(res.Mappings))
		fmt.Println(mapping.FormatTable(res.Mappings))
		fmt.Printf("Mapping CSV: %s\n", res.CSVPath)
		fmt.Printf("Archive:     %s\n", res.ArchivePath)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertTemplate, "template", "", "Conga template DOCX file")
	convertCmd.Flags().StringVar(&convertQuery, "query", "", "SOQL query text file")
	convertCmd.Flags().StringVar(&convertQueryText, "query-text", "", "SOQL query passed inline")
	convertCmd.Flags().StringVar(&convertSchema, "schema", "", "Box-Salesforce JSON schema file")
	convertCmd.Flags().StringVar(&convertOut, "out", "", "Output directory (default <data-dir>/out)")
	convertCmd.Flags().StringVar(&convertModel, "model", "", "Override the generation model")
	convertCmd.MarkFlagRequired("template")
	convertCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(convertCmd)
}
