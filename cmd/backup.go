package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"invoicer/internal/backup"
	"invoicer/internal/logger"
	"invoicer/internal/session"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export, import or clear all invoice data",
	Long: `Back up templates, the current invoice and the invoice counter to a JSON
file, or restore them from one.

Import replaces each section present in the file and leaves the others alone.
A file that cannot be read is rejected as a whole and nothing is changed.`,
	Example: `  # Write a backup to the default file name
  invoicer backup export

  # Restore from a file
  invoicer backup import invoice-backup-2025-11-13.json

  # Print the JSON Schema of the backup format
  invoicer backup schema`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all data to a JSON backup file",
	Args:  cobra.NoArgs,
	RunE:  runBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore data from a JSON backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupImport,
}

var backupSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the backup format",
	Args:  cobra.NoArgs,
	RunE:  runBackupSchema,
}

var backupClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all templates, the current invoice and the counter",
	Args:  cobra.NoArgs,
	RunE:  runBackupClear,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupExportCmd, backupImportCmd, backupSchemaCmd, backupClearCmd)

	backupExportCmd.Flags().StringP("output", "o", "", "Output file path (default: invoice-backup-<date>.json, - for stdout)")
	backupClearCmd.Flags().Bool("yes", false, "Confirm deleting all data")
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("backup")
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = fmt.Sprintf("invoice-backup-%s.json", time.Now().Format("2006-01-02"))
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		doc, err := a.backups.Export(ctx)
		if err != nil {
			return handleStorageError(err, log)
		}
		data, err := backup.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}

		if outputPath == "-" {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			log.Error().Err(err).Str("file", outputPath).Msg("Failed to write backup file")
			return fmt.Errorf("failed to write backup file: %w", err)
		}
		log.Info().Str("file", outputPath).Msg("Backup written")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Backup written to %s (%d templates)\n", outputPath, len(doc.Templates))
		return nil
	})
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("backup")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		result, err := a.backups.Import(ctx, data)
		if err != nil {
			if errors.Is(err, backup.ErrInvalidBackup) {
				log.Warn().Err(err).Str("file", args[0]).Msg("Backup rejected")
				return fmt.Errorf("%w\nNothing was imported", err)
			}
			return handleStorageError(err, log)
		}

		out := cmd.OutOrStdout()
		var parts []string
		if result.TemplatesApplied {
			parts = append(parts, fmt.Sprintf("%d templates", result.Templates))
		}
		if result.CurrentInvoice {
			parts = append(parts, "current invoice")
		}
		if result.LastInvoiceNumber {
			parts = append(parts, "invoice counter")
		}
		if len(parts) == 0 {
			fmt.Fprintln(out, "Backup contained no data; nothing imported")
			return nil
		}
		fmt.Fprintf(out, "✓ Imported %s\n", strings.Join(parts, ", "))
		return nil
	})
}

func runBackupSchema(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(backup.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runBackupClear(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("backup")

	if !parseBoolFlag(cmd, "yes") {
		return errors.New("this deletes all templates, the current invoice and the invoice counter; rerun with --yes to confirm")
	}

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		if err := s.ClearData(ctx); err != nil {
			return handleStorageError(err, log)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ All data cleared")
		return nil
	})
}
