// Package normalize implements the per-report Normalizer agents: each
// reads a raw spreadsheet or CSV report of a known report type and
// emits canonical transaction rows, adapted from the original Python
// ingestion agents (AmazonMTRAgent, AmazonSTRAgent, FlipkartAgent,
// PepperfryAgent) into typed Go readers over excelize/encoding-csv.
package normalize

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
)

// RunContext carries the header values every normalized row is stamped
// with, spec'd per the Run entity: channel, gstin, month.
type RunContext struct {
	Channel rows.Channel
	GSTIN   string
	Month   string
	// StateCodeTable maps a two-digit state code (as used both in GSTIN
	// prefixes and in "Ship To State Code" / "State Code" raw columns)
	// to its canonical upper-case state name.
	StateCodeTable map[string]string
}

// NormalizeResult is the output of one normalizer invocation: the
// canonical rows plus the per-row exceptions recovered along the way
// (UnparseableRow), aggregated into a stage report.
type NormalizeResult struct {
	Rows       []rows.Canonical
	Exceptions []pipeerrors.RowException
}

// Normalizer reads one raw report file and emits canonical rows.
type Normalizer interface {
	ReportType() rows.Channel
	Normalize(ctx context.Context, rc RunContext, path string) (NormalizeResult, error)
}

// readTable dispatches to excelize or encoding/csv by file extension
// and returns a header row plus data rows as raw string cells.
func readTable(path string) (header []string, dataRows [][]string, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return readCSV(path)
	}
}

// colIndex finds a column's position in header, case-sensitively (raw
// reports use fixed column names per channel).
func colIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func requireColumns(header []string, stage string, names ...string) error {
	var missing []string
	for _, n := range names {
		if colIndex(header, n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return pipeerrors.New(stage, pipeerrors.SchemaMismatch,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseDate accepts ISO-8601 and a couple of common report formats.
func parseDate(raw string) (time.Time, error) {
	formats := []string{"2006-01-02", "02-01-2006", "2006/01/02"}
	var lastErr error
	for _, f := range formats {
		if t, err := time.Parse(f, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// parseRate coerces a rate given either as a percent-integer ("18") or
// already-decimal ("0.18") string into a decimal fraction.
func parseRate(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d, nil
}

// stateFromCode resolves a two-digit state code to its canonical
// upper-case state name using the run's state table, falling back to
// the raw code itself when unknown so downstream stages still see a
// stable (if unresolved) value rather than an empty string.
func stateFromCode(code string, table map[string]string) string {
	if name, ok := table[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}

func cleanState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
