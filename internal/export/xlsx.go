// Package export renders an invoice into a single-page, portrait document file.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"invoicer/internal/diagnostics"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// ErrExportFailed wraps every failure; no partial file is left behind.
var ErrExportFailed = errors.New("invoice export failed")

// Exporter writes an invoice to filename.
type Exporter interface {
	Export(ctx context.Context, inv *models.Invoice, filename string) error
}

const (
	sheetName = "Invoice"

	// excelize paper size code for A4.
	paperA4 = 9
)

var _ Exporter = (*XLSXExporter)(nil)

// XLSXExporter lays the invoice out on one A4 portrait page.
type XLSXExporter struct {
	events diagnostics.Sink
	log    zerolog.Logger
}

// NewXLSXExporter creates an exporter. events may be nil.
func NewXLSXExporter(events diagnostics.Sink) *XLSXExporter {
	return &XLSXExporter{
		events: diagnostics.OrNop(events),
		log:    logger.WithComponent("export"),
	}
}

// DefaultFilename returns "<invoice number>.xlsx", falling back to the id.
func DefaultFilename(inv *models.Invoice) string {
	base := inv.Details.InvoiceNumber
	if base == "" {
		base = "invoice-" + inv.ID
	}
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, base)
	return base + ".xlsx"
}

// Export renders inv into filename.
func (e *XLSXExporter) Export(ctx context.Context, inv *models.Invoice, filename string) error {
	const op = "Export"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrExportFailed, err))
	}

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			e.log.Warn().Err(closeErr).Msg("Failed to close workbook")
		}
	}()

	if err := e.render(f, inv); err != nil {
		e.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("Failed to render invoice")
		return fmt.Errorf("%s: %w", op, errors.Join(ErrExportFailed, err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), ".invoicer-export-*.xlsx")
	if err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrExportFailed, err))
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := f.SaveAs(tmpName); err != nil {
		os.Remove(tmpName)
		e.log.Error().Err(err).Str("file", filename).Msg("Failed to write workbook")
		return fmt.Errorf("%s: %w", op, errors.Join(ErrExportFailed, err))
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, errors.Join(ErrExportFailed, err))
	}

	e.log.Info().
		Str("invoice_number", inv.Details.InvoiceNumber).
		Str("file", filename).
		Msg("Invoice exported")
	e.events.Emit(diagnostics.SeverityInfo, diagnostics.CategoryExport, "invoice exported", map[string]any{
		"invoice_id": inv.ID,
		"file":       filename,
	})
	return nil
}

func (e *XLSXExporter) render(f *excelize.File, inv *models.Invoice) error {
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	w := &sheetWriter{f: f, row: 1}
	currency := inv.Payment.Currency

	w.line("INVOICE")
	w.pair("Invoice number", inv.Details.InvoiceNumber)
	w.pair("Invoice date", inv.Details.InvoiceDate)
	w.pair("Service period", inv.Details.ServicePeriodStart+" – "+inv.Details.ServicePeriodEnd)
	w.skip()

	w.line("From")
	w.party(inv.Company)
	w.skip()
	w.line("To")
	w.party(inv.Client)
	w.skip()

	itemsHeader := w.row
	w.cells("Description", "Quantity", "Unit price", "Amount")
	for _, item := range inv.Services {
		desc := item.Description
		if item.AdditionalInfo != "" {
			desc += "\n" + item.AdditionalInfo
		}
		w.cells(desc, item.Quantity.String(), item.UnitPrice.Format2(), item.Amount.Format2())
	}
	w.skip()

	w.money("Subtotal", inv.Subtotal, currency)
	if inv.ReverseCharge.Applicable {
		w.money("VAT (reverse charge)", models.Amount{}, currency)
	} else {
		w.money("VAT "+inv.VATRate.String()+"%", inv.VATAmount, currency)
	}
	w.money("Total", inv.Total, currency)
	w.skip()

	if inv.ReverseCharge.Applicable {
		w.line(inv.ReverseCharge.Article44Text)
		w.line(inv.ReverseCharge.Article13Text)
		if inv.ReverseCharge.CustomerVAT != "" {
			w.pair("Customer VAT id", inv.ReverseCharge.CustomerVAT)
		}
		w.skip()
	}

	if inv.Payment.Terms != "" {
		w.line(inv.Payment.Terms)
	}
	w.pair("Bank", inv.Payment.BankName)
	w.pair("Account holder", inv.Payment.AccountHolder)
	w.pair("IBAN", inv.Payment.IBAN)
	w.pair("BIC", inv.Payment.BIC)
	if inv.Notes != "" {
		w.skip()
		w.line(inv.Notes)
	}

	if w.err != nil {
		return w.err
	}
	return layoutPage(f, itemsHeader)
}

// layoutPage fixes the sheet to one portrait A4 page.
func layoutPage(f *excelize.File, itemsHeader int) error {
	if err := f.SetColWidth(sheetName, "A", "A", 48); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "D", 16); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	headerCell := fmt.Sprintf("A%d", itemsHeader)
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, headerCell, fmt.Sprintf("D%d", itemsHeader), bold); err != nil {
		return err
	}

	size := paperA4
	orientation := "portrait"
	one := 1
	if err := f.SetPageLayout(sheetName, &excelize.PageLayoutOptions{
		Size:        &size,
		Orientation: &orientation,
		FitToHeight: &one,
		FitToWidth:  &one,
	}); err != nil {
		return err
	}

	fitToPage := true
	return f.SetSheetProps(sheetName, &excelize.SheetPropsOptions{FitToPage: &fitToPage})
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

func (w *sheetWriter) cells(values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheetName, cell, &values); err != nil {
		w.err = err
		return
	}
	w.row++
}

func (w *sheetWriter) line(text string) { w.cells(text) }

func (w *sheetWriter) pair(label, value string) {
	if value == "" {
		return
	}
	w.cells(label, value)
}

func (w *sheetWriter) money(label string, v models.Amount, currency string) {
	w.cells(label, "", "", strings.TrimSpace(v.Format2()+" "+currency))
}

func (w *sheetWriter) party(p models.Party) {
	w.line(p.Name)
	if p.Street != "" {
		w.line(p.Street)
	}
	if city := strings.TrimSpace(p.PostalCode + " " + p.City); city != "" {
		w.line(city)
	}
	if p.Country != "" {
		w.line(p.Country)
	}
	w.pair("VAT id", p.VATID)
	w.pair("Tax number", p.TaxNumber)
}

func (w *sheetWriter) skip() { w.row++ }
