package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/session"
	"invoicer/pkg/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Show and edit the current invoice",
	Long: `Show and edit the invoice currently being worked on.

Every change recalculates line amounts, subtotal, VAT and total and saves the
invoice immediately. Amounts and totals cannot be edited directly.`,
	Example: `  # Show the current invoice
  invoicer invoice show

  # Start a new numbered invoice
  invoicer invoice new

  # Edit fields by dotted path
  invoicer invoice set client.name "ACME GmbH"
  invoicer invoice set vatRate 20
  invoicer invoice set reverseCharge.applicable true

  # Add a line item and set its price
  invoicer invoice add-item --description "Consulting" --quantity 2 --unit-price 100`,
}

var invoiceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current invoice",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceShow,
}

var invoiceNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Replace the current invoice with a blank one and a fresh number",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceNew,
}

var invoiceSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set one field of the current invoice",
	Long: `Set one field of the current invoice by dotted path.

Paths:
  vatRate, notes
  company.<name|street|postalCode|city|country|vatId|taxNumber|email|phone>
  client.<same as company>
  details.<invoiceNumber|invoiceDate|servicePeriodStart|servicePeriodEnd>
  payment.<bankName|accountHolder|iban|bic|currency|terms|dueDays>
  reverseCharge.<applicable|article44Text|article13Text|customerVAT>
  services.<item-id>.<description|additionalInfo|quantity|unitPrice>

Numeric input that cannot be parsed is stored as 0. A single comma is read as
the decimal point (12,5 is 12.5). Thousands separators are not supported:
1,000 is ambiguous and is stored as 0, so write 1000.`,
	Args: cobra.ExactArgs(2),
	RunE: runInvoiceSet,
}

var invoiceAddItemCmd = &cobra.Command{
	Use:   "add-item",
	Short: "Append a line item",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceAddItem,
}

var invoiceRemoveItemCmd = &cobra.Command{
	Use:   "remove-item <item-id>",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoiceRemoveItem,
}

var invoiceMoveItemCmd = &cobra.Command{
	Use:   "move-item <item-id> <position>",
	Short: "Move a line item to a zero-based position",
	Args:  cobra.ExactArgs(2),
	RunE:  runInvoiceMoveItem,
}

var invoiceRenumberCmd = &cobra.Command{
	Use:   "renumber",
	Short: "Give the current invoice the next invoice number",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceRenumber,
}

var invoiceCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report missing fields and inconsistent totals",
	Args:  cobra.NoArgs,
	RunE:  runInvoiceCheck,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(invoiceShowCmd, invoiceNewCmd, invoiceSetCmd, invoiceAddItemCmd,
		invoiceRemoveItemCmd, invoiceMoveItemCmd, invoiceRenumberCmd, invoiceCheckCmd)

	invoiceShowCmd.Flags().Bool("json", false, "Print the invoice as JSON")
	invoiceCheckCmd.Flags().Bool("json", false, "Print the result as JSON")

	invoiceAddItemCmd.Flags().String("description", "", "Item description")
	invoiceAddItemCmd.Flags().String("info", "", "Additional information")
	invoiceAddItemCmd.Flags().String("quantity", "1", "Quantity")
	invoiceAddItemCmd.Flags().String("unit-price", "0", "Unit price")
}

func runInvoiceShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		inv := s.Current()
		if parseBoolFlag(cmd, "json") {
			return printJSON(cmd, inv)
		}
		printInvoice(cmd, inv)
		return nil
	})
}

func runInvoiceNew(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		inv, err := s.NewInvoice(ctx)
		if err != nil {
			return handleStorageError(err, log)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ New invoice %s\n", inv.Details.InvoiceNumber)
		return nil
	})
}

func runInvoiceSet(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")
	path, value := trimmed(args[0]), args[1]

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		if err := s.Edit(ctx, path, value); err != nil {
			return handleEditError(err, log)
		}
		printTotals(cmd, s.Current())
		return nil
	})
}

func runInvoiceAddItem(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	description, _ := cmd.Flags().GetString("description")
	info, _ := cmd.Flags().GetString("info")
	quantity, _ := cmd.Flags().GetString("quantity")
	unitPrice, _ := cmd.Flags().GetString("unit-price")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		id, err := s.AddItem(ctx, models.LineItem{
			Description:    description,
			AdditionalInfo: info,
			Quantity:       models.ParseAmount(quantity),
			UnitPrice:      models.ParseAmount(unitPrice),
		})
		if err != nil {
			return handleStorageError(err, log)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added item %s\n", id)
		printTotals(cmd, s.Current())
		return nil
	})
}

func runInvoiceRemoveItem(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		if err := s.RemoveItem(ctx, trimmed(args[0])); err != nil {
			return handleEditError(err, log)
		}
		printTotals(cmd, s.Current())
		return nil
	})
}

func runInvoiceMoveItem(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	position, err := strconv.Atoi(trimmed(args[1]))
	if err != nil {
		return fmt.Errorf("position must be a whole number: %q", args[1])
	}

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		if err := s.MoveItem(ctx, trimmed(args[0]), position); err != nil {
			return handleEditError(err, log)
		}
		return nil
	})
}

func runInvoiceRenumber(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoice")

	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		number, err := s.Renumber(ctx)
		if err != nil {
			return handleStorageError(err, log)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Invoice number %s\n", number)
		return nil
	})
}

func runInvoiceCheck(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, s *session.Session) error {
		result := invoice.NewChecker().Check(s.Current())
		if parseBoolFlag(cmd, "json") {
			return printJSON(cmd, result)
		}

		out := cmd.OutOrStdout()
		if result.OK() {
			fmt.Fprintln(out, "✓ No problems found")
			return nil
		}
		for _, w := range result.Warnings {
			if w.Field != "" {
				fmt.Fprintf(out, "⚠ %s: %s\n", w.Field, w.Message)
			} else {
				fmt.Fprintf(out, "⚠ %s\n", w.Message)
			}
		}
		return nil
	})
}

// printInvoice renders the invoice as a console preview.
func printInvoice(cmd *cobra.Command, inv *models.Invoice) {
	out := cmd.OutOrStdout()
	currency := inv.Payment.Currency

	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "INVOICE %s\n", orDash(inv.Details.InvoiceNumber))
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "Date: %s   Service period: %s – %s\n",
		orDash(inv.Details.InvoiceDate), orDash(inv.Details.ServicePeriodStart), orDash(inv.Details.ServicePeriodEnd))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "=== FROM ===")
	printParty(cmd, inv.Company)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== TO ===")
	printParty(cmd, inv.Client)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "=== ITEMS ===")
	for i, item := range inv.Services {
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, item.ID, orDash(item.Description))
		if item.AdditionalInfo != "" {
			fmt.Fprintf(out, "   %s\n", item.AdditionalInfo)
		}
		fmt.Fprintf(out, "   %s × %s = %s %s\n", item.Quantity.String(), item.UnitPrice.Format2(), item.Amount.Format2(), currency)
	}
	fmt.Fprintln(out)

	printTotals(cmd, inv)

	if inv.ReverseCharge.Applicable {
		fmt.Fprintln(out)
		fmt.Fprintln(out, inv.ReverseCharge.Article44Text)
		fmt.Fprintln(out, inv.ReverseCharge.Article13Text)
		if inv.ReverseCharge.CustomerVAT != "" {
			fmt.Fprintf(out, "Customer VAT id: %s\n", inv.ReverseCharge.CustomerVAT)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== PAYMENT ===")
	if inv.Payment.Terms != "" {
		fmt.Fprintln(out, inv.Payment.Terms)
	}
	fmt.Fprintf(out, "Bank: %s  IBAN: %s  BIC: %s\n", orDash(inv.Payment.BankName), orDash(inv.Payment.IBAN), orDash(inv.Payment.BIC))
	if inv.Notes != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, inv.Notes)
	}
}

func printParty(cmd *cobra.Command, p models.Party) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, orDash(p.Name))
	if p.Street != "" {
		fmt.Fprintln(out, p.Street)
	}
	if city := strings.TrimSpace(p.PostalCode + " " + p.City); city != "" {
		fmt.Fprintln(out, city)
	}
	if p.Country != "" {
		fmt.Fprintln(out, p.Country)
	}
	if p.VATID != "" {
		fmt.Fprintf(out, "VAT id: %s\n", p.VATID)
	}
}

func printTotals(cmd *cobra.Command, inv *models.Invoice) {
	out := cmd.OutOrStdout()
	currency := inv.Payment.Currency

	fmt.Fprintf(out, "Subtotal: %s %s\n", inv.Subtotal.Format2(), currency)
	if inv.ReverseCharge.Applicable {
		fmt.Fprintf(out, "VAT (reverse charge): %s %s\n", models.Amount{}.Format2(), currency)
	} else {
		fmt.Fprintf(out, "VAT %s%%: %s %s\n", inv.VATRate.String(), inv.VATAmount.Format2(), currency)
	}
	fmt.Fprintf(out, "Total: %s %s\n", inv.Total.Format2(), currency)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
