package invoice

import (
	"invoicer/pkg/models"
)

// Recalculate derives every computed field of inv from its line items, VAT
// rate and reverse-charge flag, and returns inv.
//
//	amount    = quantity * unitPrice        (per item, full precision)
//	subtotal  = sum(amount)                 (in item order)
//	vatAmount = 0 if reverse charge applies, else subtotal * vatRate / 100
//	total     = subtotal + vatAmount
//
// The stored VAT rate is left untouched under reverse charge. Nothing is
// rounded here; rounding to two digits happens only when formatting.
// Recalculate is idempotent and never fails.
func Recalculate(inv *models.Invoice) *models.Invoice {
	if inv == nil {
		return nil
	}

	subtotal := models.Amount{}
	for i := range inv.Services {
		item := &inv.Services[i]
		amount := item.Quantity.Mul(item.UnitPrice)
		// Keep the stored representation when the value is unchanged so that
		// repeated recalculation is a byte-for-byte no-op.
		if !item.Amount.Equal(amount) {
			item.Amount = amount
		}
		subtotal = subtotal.Add(item.Amount)
	}

	vat := models.Amount{}
	if !inv.ReverseCharge.Applicable {
		vat = subtotal.Percent(inv.VATRate)
	}

	total := subtotal.Add(vat)

	setIfChanged(&inv.Subtotal, subtotal)
	setIfChanged(&inv.VATAmount, vat)
	setIfChanged(&inv.Total, total)

	return inv
}

func setIfChanged(dst *models.Amount, v models.Amount) {
	if !dst.Equal(v) {
		*dst = v
	}
}
