package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"invoicer/internal/export"
	"invoicer/internal/logger"
	"invoicer/internal/session"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current invoice to a document file",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Export the current invoice as a one-page A4 spreadsheet",
	Example: `  # Write <invoice-number>.xlsx in the current directory
  invoicer export xlsx

  # Choose the file name
  invoicer export xlsx -o november.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExportXLSX,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportXLSXCmd)

	exportXLSXCmd.Flags().StringP("output", "o", "", "Output file path (default: <invoice-number>.xlsx)")
}

func runExportXLSX(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")
	outputPath, _ := cmd.Flags().GetString("output")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		inv := s.Current()
		if outputPath == "" {
			outputPath = export.DefaultFilename(inv)
		}

		exporter := export.NewXLSXExporter(a.events)
		if err := exporter.Export(ctx, inv, outputPath); err != nil {
			log.Error().Err(err).Str("file", outputPath).Msg("Export failed")
			if errors.Is(err, export.ErrExportFailed) {
				return fmt.Errorf("could not write %s; no file was created: %w", outputPath, err)
			}
			return err
		}

		abs, err := filepath.Abs(outputPath)
		if err != nil {
			abs = outputPath
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", abs)
		return nil
	})
}
