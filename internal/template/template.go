// Package template loads and validates the per-GSTIN X2Beta voucher
// workbook template: a fixed header row the voucher assembler writes
// rows beneath.
package template

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
)

const stageTemplate = "template"

// RequiredSalesColumns is the fixed header set every sales voucher
// template must carry, at minimum, in any order; extra columns are
// preserved untouched by the assembler.
var RequiredSalesColumns = []string{
	"Date", "Voucher No.", "Voucher Type", "Party Ledger", "Party Name",
	"Item Name", "Quantity", "Rate", "Taxable Amount",
	"Output CGST Ledger", "CGST Amount", "Output SGST Ledger", "SGST Amount",
	"Output IGST Ledger", "IGST Amount", "Total Amount", "Narration",
}

// Layout is a loaded template's sheet name, header row number, and a
// column-name -> 1-based column index map.
type Layout struct {
	SheetName string
	HeaderRow int
	Columns   map[string]int
}

// ColIndex returns the 1-based column index for name, or 0 if absent.
func (l Layout) ColIndex(name string) int { return l.Columns[name] }

// Registry resolves a per-GSTIN template path and loads/validates its layout.
type Registry struct {
	// PathFor maps a gstin to its template workbook path on disk.
	PathFor map[string]string
	// DefaultPath is used when no per-GSTIN path is registered.
	DefaultPath string
}

// NewRegistry returns a Registry backed by an explicit gstin->path map
// and a fallback default template path.
func NewRegistry(pathFor map[string]string, defaultPath string) *Registry {
	return &Registry{PathFor: pathFor, DefaultPath: defaultPath}
}

// Load opens the template workbook for gstin and validates its header
// row against required, returning a fatal TemplateInvalid error if any
// required column is missing.
func (r *Registry) Load(gstin string, required []string) (*excelize.File, Layout, error) {
	path, ok := r.PathFor[gstin]
	if !ok {
		path = r.DefaultPath
	}
	if path == "" {
		return nil, Layout{}, pipeerrors.New(stageTemplate, pipeerrors.TemplateInvalid,
			fmt.Sprintf("no template registered for gstin %s", gstin))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, Layout{}, pipeerrors.Wrap(stageTemplate, pipeerrors.TemplateInvalid, "open template workbook", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, Layout{}, pipeerrors.New(stageTemplate, pipeerrors.TemplateInvalid, "template workbook has no sheets")
	}
	sheet := sheets[0]

	rowsVals, err := f.GetRows(sheet)
	if err != nil || len(rowsVals) == 0 {
		return nil, Layout{}, pipeerrors.New(stageTemplate, pipeerrors.TemplateInvalid, "template workbook has no header row")
	}
	header := rowsVals[0]

	columns := map[string]int{}
	for i, h := range header {
		columns[h] = i + 1
	}

	var missing []string
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, Layout{}, pipeerrors.New(stageTemplate, pipeerrors.TemplateInvalid,
			fmt.Sprintf("template workbook missing required columns: %v", missing))
	}

	return f, Layout{SheetName: sheet, HeaderRow: 1, Columns: columns}, nil
}
