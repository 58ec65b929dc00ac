package invoice

import (
	"errors"
	"strconv"
	"strings"

	"invoicer/pkg/models"
)

// ErrReadOnlyField is returned when an edit targets a derived field.
var ErrReadOnlyField = errors.New("field is derived and cannot be edited")

// ApplyEdit sets one field of inv addressed by a dotted path and recalculates.
//
// Supported paths:
//
//	vatRate, notes
//	company.<field>, client.<field>   name street postalCode city country vatId taxNumber email phone
//	details.<field>                   invoiceNumber invoiceDate servicePeriodStart servicePeriodEnd
//	payment.<field>                   bankName accountHolder iban bic currency terms dueDays
//	reverseCharge.<field>             applicable article44Text article13Text customerVAT
//	services.<itemID>.<field>         description additionalInfo quantity unitPrice
//
// Numeric fields never reject input: anything that is not a number becomes 0.
// Date fields are stored as typed.
func ApplyEdit(inv *models.Invoice, path, value string) error {
	const op = "ApplyEdit"

	if err := applyEdit(inv, path, value); err != nil {
		return NewEditError(op, path, err)
	}
	Recalculate(inv)
	return nil
}

func applyEdit(inv *models.Invoice, path, value string) error {
	head, rest, _ := strings.Cut(path, ".")

	switch head {
	case "vatRate":
		if rest != "" {
			return ErrUnknownField
		}
		inv.VATRate = models.ParseAmount(value)
		return nil
	case "notes":
		if rest != "" {
			return ErrUnknownField
		}
		inv.Notes = value
		return nil
	case "subtotal", "vatAmount", "total", "id":
		return ErrReadOnlyField
	case "company":
		return setString(partyField(&inv.Company, rest), value)
	case "client":
		return setString(partyField(&inv.Client, rest), value)
	case "details":
		return setString(detailsField(&inv.Details, rest), value)
	case "payment":
		if rest == "dueDays" {
			inv.Payment.DueDays = coerceInt(value)
			return nil
		}
		return setString(paymentField(&inv.Payment, rest), value)
	case "reverseCharge":
		if rest == "applicable" {
			b, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return ErrInvalidValue
			}
			inv.ReverseCharge.Applicable = b
			return nil
		}
		return setString(reverseChargeField(&inv.ReverseCharge, rest), value)
	case "services":
		id, field, ok := strings.Cut(rest, ".")
		if !ok {
			return ErrUnknownField
		}
		idx := inv.FindItem(id)
		if idx < 0 {
			return ErrItemNotFound
		}
		return setItemField(&inv.Services[idx], field, value)
	}
	return ErrUnknownField
}

func setItemField(item *models.LineItem, field, value string) error {
	switch field {
	case "description":
		item.Description = value
	case "additionalInfo":
		item.AdditionalInfo = value
	case "quantity":
		item.Quantity = models.ParseAmount(value)
	case "unitPrice":
		item.UnitPrice = models.ParseAmount(value)
	case "amount", "id":
		return ErrReadOnlyField
	default:
		return ErrUnknownField
	}
	return nil
}

func setString(dst *string, value string) error {
	if dst == nil {
		return ErrUnknownField
	}
	*dst = value
	return nil
}

func partyField(p *models.Party, field string) *string {
	switch field {
	case "name":
		return &p.Name
	case "street":
		return &p.Street
	case "postalCode":
		return &p.PostalCode
	case "city":
		return &p.City
	case "country":
		return &p.Country
	case "vatId":
		return &p.VATID
	case "taxNumber":
		return &p.TaxNumber
	case "email":
		return &p.Email
	case "phone":
		return &p.Phone
	}
	return nil
}

func detailsField(d *models.Details, field string) *string {
	switch field {
	case "invoiceNumber":
		return &d.InvoiceNumber
	case "invoiceDate":
		return &d.InvoiceDate
	case "servicePeriodStart":
		return &d.ServicePeriodStart
	case "servicePeriodEnd":
		return &d.ServicePeriodEnd
	}
	return nil
}

func paymentField(p *models.Payment, field string) *string {
	switch field {
	case "bankName":
		return &p.BankName
	case "accountHolder":
		return &p.AccountHolder
	case "iban":
		return &p.IBAN
	case "bic":
		return &p.BIC
	case "currency":
		return &p.Currency
	case "terms":
		return &p.Terms
	}
	return nil
}

func reverseChargeField(rc *models.ReverseCharge, field string) *string {
	switch field {
	case "article44Text":
		return &rc.Article44Text
	case "article13Text":
		return &rc.Article13Text
	case "customerVAT":
		return &rc.CustomerVAT
	}
	return nil
}

func coerceInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// AddItem appends item, assigning an id from newID when it has none, and
// recalculates. It returns the id of the added item.
func AddItem(inv *models.Invoice, item models.LineItem, newID func() string) string {
	if item.ID == "" {
		item.ID = newID()
	}
	inv.Services = append(inv.Services, item)
	Recalculate(inv)
	return item.ID
}

// RemoveItem deletes the line item with the given id and recalculates.
func RemoveItem(inv *models.Invoice, id string) error {
	const op = "RemoveItem"

	idx := inv.FindItem(id)
	if idx < 0 {
		return NewEditError(op, id, ErrItemNotFound)
	}
	inv.Services = append(inv.Services[:idx], inv.Services[idx+1:]...)
	Recalculate(inv)
	return nil
}

// MoveItem moves the line item with the given id to position (0-based,
// clamped to the valid range) and recalculates.
func MoveItem(inv *models.Invoice, id string, position int) error {
	const op = "MoveItem"

	idx := inv.FindItem(id)
	if idx < 0 {
		return NewEditError(op, id, ErrItemNotFound)
	}
	if position < 0 {
		position = 0
	}
	if position > len(inv.Services)-1 {
		position = len(inv.Services) - 1
	}

	item := inv.Services[idx]
	items := append(inv.Services[:idx:idx], inv.Services[idx+1:]...)
	items = append(items[:position], append([]models.LineItem{item}, items[position:]...)...)
	inv.Services = items
	Recalculate(inv)
	return nil
}
