package normalize

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// WriteCanonicalCSV writes canonical rows as UTF-8, LF-terminated CSV
// with a header row, ISO-8601 dates, and numeric values with up to 2
// decimal places — the normalized-artifact file format.
func WriteCanonicalCSV(path string, data []rows.Canonical) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = false

	header := []string{
		"invoice_date", "order_id", "sku", "asin", "quantity", "taxable_value",
		"gst_rate", "buyer_state", "seller_state", "channel", "gstin", "month",
		"shipping_value", "returned_qty", "total_qty",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range data {
		record := []string{
			r.InvoiceDate.Format("2006-01-02"),
			r.OrderID,
			r.SKU,
			r.ASIN,
			strconv.FormatInt(r.Quantity, 10),
			r.TaxableValue.StringFixed(2),
			r.GSTRate.String(),
			r.BuyerState,
			r.SellerState,
			string(r.Channel),
			r.GSTIN,
			r.Month,
			r.ShippingValue.StringFixed(2),
			strconv.FormatInt(r.ReturnedQty, 10),
			strconv.FormatInt(r.TotalQty, 10),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteEnrichedCSV writes enriched rows (canonical plus resolved
// master data) as the enrichment-stage artifact.
func WriteEnrichedCSV(path string, data []rows.Enriched) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = false

	header := []string{
		"order_id", "sku", "asin", "buyer_state", "channel", "gstin", "month",
		"taxable_value", "gst_rate", "fg", "item_resolved", "ledger_name", "ledger_resolved",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range data {
		record := []string{
			r.OrderID, r.SKU, r.ASIN, r.BuyerState, string(r.Channel), r.GSTIN, r.Month,
			r.TaxableValue.StringFixed(2), r.GSTRate.String(), r.FG,
			strconv.FormatBool(r.ItemResolved), r.LedgerName, strconv.FormatBool(r.LedgerResolved),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WritePricedCSV writes priced rows (enriched plus tax split and
// invoice number) as the tax-stage artifact.
func WritePricedCSV(path string, data []rows.Priced) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = false

	header := []string{
		"invoice_no", "order_id", "buyer_state", "ledger_name", "fg",
		"taxable_value", "cgst", "sgst", "igst", "total_tax", "total_amount",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range data {
		record := []string{
			r.InvoiceNo, r.OrderID, r.BuyerState, r.LedgerName, r.FG,
			r.TaxableValue.StringFixed(2), r.CGST.StringFixed(2), r.SGST.StringFixed(2),
			r.IGST.StringFixed(2), r.TotalTax.StringFixed(2), r.TotalAmount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WritePivotCSV writes aggregated pivot rows, used for both the
// full pivot-stage artifact and each per-rate batch partition.
func WritePivotCSV(path string, data []rows.Pivot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.UseCRLF = false

	header := []string{
		"gstin", "month", "gst_rate", "ledger_name", "fg", "buyer_state",
		"total_quantity", "total_taxable", "total_cgst", "total_sgst", "total_igst",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range data {
		record := []string{
			r.Key.GSTIN, r.Key.Month, r.Key.GSTRate.String(), r.Key.LedgerName, r.Key.FG, r.Key.BuyerState,
			strconv.FormatInt(r.TotalQuantity, 10), r.TotalTaxable.StringFixed(2),
			r.TotalCGST.StringFixed(2), r.TotalSGST.StringFixed(2), r.TotalIGST.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
