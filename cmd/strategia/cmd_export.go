package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/letieu/strategia/internal/export"
	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/license"
)

var (
	exportFormat string
	exportSource string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ideas to CSV, JSON, YAML, Markdown or printable HTML",
	Long: `Writes the current or saved ideas, with the selected analysis when it
belongs to one of them, to a file named after the list and today's date.

Use --out - to write to stdout.

Example:
  strategia export --format csv --source saved`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv, json, yaml, md or html")
	exportCmd.Flags().StringVar(&exportSource, "source", "current", "current or saved")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", ".", "output directory, or - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.licenses.Check(ctx, license.FeatureAction(license.Export)); err != nil {
		return err
	}

	var (
		title string
		ideas []idea.Idea
	)
	switch exportSource {
	case "current":
		title, ideas = "Generated Ideas", a.library.Current(ctx)
	case "saved":
		title, ideas = "Saved Ideas", a.library.Saved(ctx)
	default:
		return fmt.Errorf("--source must be current or saved, got %q", exportSource)
	}
	doc := export.NewDocument(title, time.Now(), ideas, a.library.SelectedAnalysis(ctx))

	if exportOut == "-" {
		return export.Write(cmd.OutOrStdout(), format, doc)
	}

	path := filepath.Join(exportOut, doc.Filename(format))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(f, format, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("exported", zap.String("path", path), zap.Int("ideas", len(doc.Ideas)))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
