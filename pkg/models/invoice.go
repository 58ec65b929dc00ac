package models

import "time"

// DateLayout is the calendar-date format used by all invoice date fields.
const DateLayout = "2006-01-02"

// Party is the issuing company or the invoiced client.
type Party struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
	VATID      string `json:"vatId"`               // USt-IdNr / EU VAT id
	TaxNumber  string `json:"taxNumber,omitempty"` // Steuernummer
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Details holds the identity and dates of one invoice instance.
// Dates are YYYY-MM-DD strings; malformed values are kept as typed for display.
type Details struct {
	InvoiceNumber      string `json:"invoiceNumber"`
	InvoiceDate        string `json:"invoiceDate"`
	ServicePeriodStart string `json:"servicePeriodStart"`
	ServicePeriodEnd   string `json:"servicePeriodEnd"`
}

// LineItem is one billable row. Amount is derived from Quantity and UnitPrice
// by recalculation and is never authored directly.
type LineItem struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
	Quantity       Amount `json:"quantity"`
	UnitPrice      Amount `json:"unitPrice"`
	Amount         Amount `json:"amount"`
}

// Payment is bank and terms metadata. Nothing here is computed.
type Payment struct {
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	Currency      string `json:"currency"`
	Terms         string `json:"terms"`
	DueDays       int    `json:"dueDays,omitempty"`
}

// ReverseCharge is the tax treatment where the recipient owes the VAT.
// When Applicable is set, output tax is zero regardless of the VAT rate.
type ReverseCharge struct {
	Applicable    bool   `json:"applicable"`
	Article44Text string `json:"article44Text"`
	Article13Text string `json:"article13Text"`
	CustomerVAT   string `json:"customerVAT"`
}

// Invoice is one billable document.
type Invoice struct {
	// Core identifiers
	ID      string  `json:"id"`      // Process-assigned, stable while the document is edited
	Details Details `json:"details"` // Human-facing number and dates

	// Parties
	Company Party `json:"company"` // Issuer
	Client  Party `json:"client"`  // Invoiced party

	// Content
	Services      []LineItem    `json:"services"`
	Payment       Payment       `json:"payment"`
	ReverseCharge ReverseCharge `json:"reverseCharge"`
	VATRate       Amount        `json:"vatRate"` // Percent, e.g. 19
	Notes         string        `json:"notes,omitempty"`

	// Derived aggregates, valid after recalculation
	Subtotal  Amount `json:"subtotal"`
	VATAmount Amount `json:"vatAmount"`
	Total     Amount `json:"total"`
}

// InvoiceContent is what a template may carry: everything except the
// identity and date fields of an invoice instance.
type InvoiceContent struct {
	Company       Party         `json:"company"`
	Client        Party         `json:"client"`
	Services      []LineItem    `json:"services"`
	Payment       Payment       `json:"payment"`
	ReverseCharge ReverseCharge `json:"reverseCharge"`
	VATRate       Amount        `json:"vatRate"`
	Notes         string        `json:"notes,omitempty"`
}

// InvoiceTemplate is a named, reusable snapshot of invoice content.
type InvoiceTemplate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Invoice     InvoiceContent `json:"invoice"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Content extracts the template-able part of the invoice as a deep copy.
func (inv *Invoice) Content() InvoiceContent {
	return InvoiceContent{
		Company:       inv.Company,
		Client:        inv.Client,
		Services:      cloneItems(inv.Services),
		Payment:       inv.Payment,
		ReverseCharge: inv.ReverseCharge,
		VATRate:       inv.VATRate,
		Notes:         inv.Notes,
	}
}

// Clone returns a deep copy of the invoice.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	out.Services = cloneItems(inv.Services)
	return &out
}

// Clone returns a deep copy of the content.
func (c InvoiceContent) Clone() InvoiceContent {
	c.Services = cloneItems(c.Services)
	return c
}

// Clone returns a deep copy of the template.
func (t *InvoiceTemplate) Clone() *InvoiceTemplate {
	if t == nil {
		return nil
	}
	out := *t
	out.Invoice = t.Invoice.Clone()
	return &out
}

// FindItem returns the index of the line item with the given id, or -1.
func (inv *Invoice) FindItem(id string) int {
	for i := range inv.Services {
		if inv.Services[i].ID == id {
			return i
		}
	}
	return -1
}

// Amounts are immutable values, so copying the slice is a deep copy.
func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
