package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"invoicer/internal/logger"
	"invoicer/internal/session"
	"invoicer/internal/templates"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates"},
	Short:   "Manage reusable invoice templates",
	Long: `Manage named snapshots of invoice content.

A template stores parties, line items, payment terms, reverse-charge settings,
VAT rate and notes. It never stores an invoice number or dates; applying a
template creates a new invoice with the next number, today's date and a fresh
service period.`,
	Example: `  # Save the current invoice as a template
  invoicer template save-current "Monthly retainer" --description "ACME, fixed fee"

  # Start this month's invoice from it
  invoicer template apply <template-id>

  # Copy a template
  invoicer template duplicate <template-id>`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

var templateShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Print a template as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

var templateSaveCurrentCmd = &cobra.Command{
	Use:     "save-current <name>",
	Aliases: []string{"create"},
	Short:   "Save the current invoice content as a new template",
	Args:    cobra.ExactArgs(1),
	RunE:    runTemplateSaveCurrent,
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <template-id>",
	Short: "Replace a template's content with the current invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateUpdate,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

var templateDuplicateCmd = &cobra.Command{
	Use:   "duplicate <template-id>",
	Short: "Copy a template under a new id",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDuplicate,
}

var templateApplyCmd = &cobra.Command{
	Use:   "apply <template-id>",
	Short: "Replace the current invoice with a new one built from a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateApply,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd, templateShowCmd, templateSaveCurrentCmd, templateUpdateCmd,
		templateDeleteCmd, templateDuplicateCmd, templateApplyCmd)

	templateSaveCurrentCmd.Flags().String("description", "", "Template description")
	templateUpdateCmd.Flags().String("name", "", "New name (default: keep)")
	templateUpdateCmd.Flags().String("description", "", "New description (default: keep)")
	templateApplyCmd.Flags().Int("period-days", 0, "Service period length in days (default: configured value)")
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		list, err := a.templates.List(ctx)
		if err != nil {
			return handleTemplateError(err, log)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No templates saved")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCLIENT\tITEMS\tUPDATED")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				t.ID, t.Name, orDash(t.Invoice.Client.Name), len(t.Invoice.Services), t.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	})
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		tmpl, err := a.templates.Load(ctx, trimmed(args[0]))
		if err != nil {
			return handleTemplateError(err, log)
		}
		if tmpl == nil {
			return fmt.Errorf("%w: %s", templates.ErrNotFound, args[0])
		}
		return printJSON(cmd, tmpl)
	})
}

func runTemplateSaveCurrent(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")
	description, _ := cmd.Flags().GetString("description")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		tmpl, err := s.SaveAsTemplate(ctx, args[0], description)
		if err != nil {
			return handleTemplateError(err, log)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved template %q (%s)\n", tmpl.Name, tmpl.ID)
		return nil
	})
}

func runTemplateUpdate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		id := trimmed(args[0])
		if !cmd.Flags().Changed("description") {
			existing, err := a.templates.Load(ctx, id)
			if err != nil {
				return handleTemplateError(err, log)
			}
			if existing != nil {
				description = existing.Description
			}
		}

		tmpl, err := s.UpdateTemplateFromCurrent(ctx, id, name, description)
		if err != nil {
			return handleTemplateError(err, log)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated template %q\n", tmpl.Name)
		return nil
	})
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.templates.Delete(ctx, trimmed(args[0])); err != nil {
			return handleTemplateError(err, log)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Template deleted")
		return nil
	})
}

func runTemplateDuplicate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		tmpl, err := a.templates.Load(ctx, trimmed(args[0]))
		if err != nil {
			return handleTemplateError(err, log)
		}
		if tmpl == nil {
			return fmt.Errorf("%w: %s", templates.ErrNotFound, args[0])
		}
		dup, err := a.templates.Duplicate(ctx, tmpl)
		if err != nil {
			return handleTemplateError(err, log)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %q (%s)\n", dup.Name, dup.ID)
		return nil
	})
}

func runTemplateApply(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("template")
	periodDays, _ := cmd.Flags().GetInt("period-days")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		inv, err := s.ApplyTemplate(ctx, trimmed(args[0]), periodDays)
		if err != nil {
			return handleTemplateError(err, log)
		}
		if inv == nil {
			return fmt.Errorf("%w: %s", templates.ErrNotFound, args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ New invoice %s from template\n", inv.Details.InvoiceNumber)
		printTotals(cmd, inv)
		return nil
	})
}

// handleTemplateError provides user-friendly error messages for template operations
func handleTemplateError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Template operation failed")

	switch {
	case errors.Is(err, templates.ErrNotFound):
		return fmt.Errorf("%w\nRun 'invoicer template list' to see saved templates", err)
	case errors.Is(err, templates.ErrEmptyName):
		return fmt.Errorf("%w\nProvide a template name", err)
	default:
		return handleStorageError(err, log)
	}
}
