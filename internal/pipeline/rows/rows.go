// Package rows defines the tagged record types that flow through the
// pipeline stages: Canonical, Enriched, Priced, Pivot. Each stage is a
// total function from one record type to the next instead of an
// untyped dataframe pass.
package rows

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel identifies the marketplace/report source of a row.
type Channel string

const (
	ChannelSalesMTR     Channel = "sales-MTR"
	ChannelSettlementSTR Channel = "settlement-STR"
	ChannelMarketplaceF Channel = "marketplace-F"
	ChannelMarketplaceP Channel = "marketplace-P"
	ChannelExpense      Channel = "expense-invoice"
)

// Canonical is a normalized transaction row.
type Canonical struct {
	InvoiceDate    time.Time
	OrderID        string
	SKU            string
	ASIN           string
	Quantity       int64
	TaxableValue   decimal.Decimal
	GSTRate        decimal.Decimal
	BuyerState     string
	SellerState    string // captured for settlement-STR
	Channel        Channel
	GSTIN          string
	Month          string // YYYY-MM
	ShippingValue  decimal.Decimal
	ReturnedQty    int64
	TotalQty       int64
}

// Enriched is a Canonical row annotated with resolved master data.
type Enriched struct {
	Canonical
	FG             string
	ItemResolved   bool
	LedgerName     string
	LedgerResolved bool
}

// Priced is an Enriched row with its tax split and invoice number.
type Priced struct {
	Enriched
	CGST        decimal.Decimal
	SGST        decimal.Decimal
	IGST        decimal.Decimal
	TotalTax    decimal.Decimal
	TotalAmount decimal.Decimal
	InvoiceNo   string
}

// PivotKey is the grouping key of a Pivot row. BuyerState is only
// populated for channels whose pivot policy retains it (marketplace-F).
type PivotKey struct {
	GSTIN      string
	Month      string
	GSTRate    decimal.Decimal
	LedgerName string
	FG         string
	BuyerState string
}

// Pivot is an aggregated pivot row.
type Pivot struct {
	Key           PivotKey
	TotalQuantity int64
	TotalTaxable  decimal.Decimal
	TotalCGST     decimal.Decimal
	TotalSGST     decimal.Decimal
	TotalIGST     decimal.Decimal
}

// TotalTax returns the sum of the three GST components for this pivot row.
func (p Pivot) TotalTax() decimal.Decimal {
	return p.TotalCGST.Add(p.TotalSGST).Add(p.TotalIGST)
}

// SellerInvoiceLine is one parsed line item of a seller fee statement,
// the input to the expense pipeline, distinct from Canonical
// transaction rows.
type SellerInvoiceLine struct {
	Channel        Channel
	GSTIN          string
	VendorInvoiceNo string
	InvoiceDate    time.Time
	ExpenseType    string
	TaxableValue   decimal.Decimal
	GSTRate        decimal.Decimal
	VendorGSTIN    string
	VendorState    string
	SourceFile     string
}
