// Package run implements the Run Coordinator: opens/closes a Run,
// invokes each pipeline stage in sequence, records stage artifacts and
// domain rows, and decides the terminal status.
package run

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/approval"
	"github.com/ledgerpipe/ledgerpipe/internal/batch"
	"github.com/ledgerpipe/ledgerpipe/internal/events"
	"github.com/ledgerpipe/ledgerpipe/internal/expense"
	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
	"github.com/ledgerpipe/ledgerpipe/internal/normalize"
	"github.com/ledgerpipe/ledgerpipe/internal/numbering"
	"github.com/ledgerpipe/ledgerpipe/internal/pivot"
	"github.com/ledgerpipe/ledgerpipe/internal/resolve"
	"github.com/ledgerpipe/ledgerpipe/internal/storage"
	"github.com/ledgerpipe/ledgerpipe/internal/store"
	"github.com/ledgerpipe/ledgerpipe/internal/store/models"
	"github.com/ledgerpipe/ledgerpipe/internal/taxstage"
	"github.com/ledgerpipe/ledgerpipe/internal/template"
	"github.com/ledgerpipe/ledgerpipe/internal/voucher"
)

// Request is the single run(config, request) entry point's input.
type Request struct {
	Channel         rows.Channel
	GSTIN           string
	Month           string
	InputPath       string
	ReturnsPath     string // marketplace-P only
	StrictMapping   bool
	Overwrite       bool
	CompanyStateTbl map[string]string
}

// StageResult records one stage's outcome for the Run's audit trail.
type StageResult struct {
	Stage     string
	Success   bool
	Processed int
	Error     string
}

// Outcome is what Run returns to the caller.
type Outcome struct {
	RunID        uuid.UUID
	Status       models.RunStatus
	Stages       []StageResult
	Artifacts    []string
	ShortCircuit bool
}

// Coordinator wires every stage collaborator together.
type Coordinator struct {
	DB         *store.DB
	Storage    storage.Store
	Events     events.Emitter
	Normalizer func(rows.Channel) normalize.Normalizer
	Allocator  *taxstage.Stage
	Templates  *template.Registry
	BucketPrefix string
	StateTable map[string]string
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Run executes the normalize -> resolve -> tax -> pivot -> batch ->
// voucher pipeline for one ingest, honoring idempotency and the
// strict-mapping approval policy.
func (c *Coordinator) Run(ctx context.Context, req Request) (Outcome, error) {
	inputHash, err := hashFile(req.InputPath)
	if err != nil {
		return Outcome{}, pipeerrors.Wrap("run", pipeerrors.StorageUnavailable, "hash input file", err)
	}

	tmpDir, err := os.MkdirTemp("", "ledgerpipe-run-*")
	if err != nil {
		return Outcome{}, pipeerrors.Wrap("run", pipeerrors.StorageUnavailable, "create scratch directory", err)
	}
	defer os.RemoveAll(tmpDir)

	if !req.Overwrite {
		if prior, err := c.DB.FindLatestSuccessfulRun(ctx, req.GSTIN, string(req.Channel), req.Month, inputHash); err == nil {
			artifacts, _ := c.DB.ListArtifacts(ctx, prior.ID)
			names := make([]string, 0, len(artifacts))
			for _, a := range artifacts {
				names = append(names, a.FilePath)
			}
			return Outcome{RunID: prior.ID, Status: prior.Status, Artifacts: names, ShortCircuit: true}, nil
		} else if err != store.ErrNotFound {
			return Outcome{}, pipeerrors.Wrap("run", pipeerrors.DatabaseUnavailable, "check prior run", err)
		}
	}

	runRecord := &models.Run{
		Channel: string(req.Channel), GSTIN: req.GSTIN, Month: req.Month,
		Status: models.RunStatusRunning, StartedAt: time.Now(), InputHash: inputHash,
	}
	if err := c.DB.CreateRun(ctx, runRecord); err != nil {
		return Outcome{}, pipeerrors.Wrap("run", pipeerrors.DatabaseUnavailable, "create run", err)
	}
	runID := runRecord.ID

	_ = c.Events.PublishRunOpened(ctx, events.RunOpened{
		RunID: runID.String(), GSTIN: req.GSTIN, Channel: string(req.Channel), Month: req.Month, At: time.Now(),
	})

	outcome := Outcome{RunID: runID}
	finish := func(status models.RunStatus) (Outcome, error) {
		outcome.Status = status
		if err := c.DB.FinishRun(ctx, runID, status); err != nil {
			return outcome, pipeerrors.Wrap("run", pipeerrors.DatabaseUnavailable, "finish run", err)
		}
		_ = c.Events.PublishRunClosed(ctx, events.RunClosed{RunID: runID.String(), Status: string(status), At: time.Now()})
		return outcome, nil
	}

	recordStage := func(stage string, success bool, processed int, stageErr error) {
		msg := ""
		if stageErr != nil {
			msg = stageErr.Error()
		}
		outcome.Stages = append(outcome.Stages, StageResult{Stage: stage, Success: success, Processed: processed, Error: msg})
		_ = c.Events.PublishStageCompleted(ctx, events.StageCompleted{
			RunID: runID.String(), Stage: stage, Success: success, Processed: processed, Error: msg, At: time.Now(),
		})
	}

	// --- Normalize ---
	normalizer := c.Normalizer(req.Channel)
	if normalizer == nil {
		recordStage("normalize", false, 0, fmt.Errorf("no normalizer for channel %s", req.Channel))
		return finish(models.RunStatusFailed)
	}
	rc := normalize.RunContext{Channel: req.Channel, GSTIN: req.GSTIN, Month: req.Month, StateCodeTable: req.CompanyStateTbl}
	var normResult normalize.NormalizeResult
	if mp, ok := normalizer.(*normalize.MarketplacePNormalizer); ok && req.ReturnsPath != "" {
		normResult, err = mp.NormalizeWithReturns(ctx, rc, req.InputPath, req.ReturnsPath)
	} else {
		normResult, err = normalizer.Normalize(ctx, rc, req.InputPath)
	}
	if err != nil {
		recordStage("normalize", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	normFilename := fmt.Sprintf("%s_%s_%s_normalized.csv", req.Channel, req.GSTIN, req.Month)
	normLocal := filepath.Join(tmpDir, normFilename)
	if err := normalize.WriteCanonicalCSV(normLocal, normResult.Rows); err != nil {
		recordStage("normalize", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	if err := c.writeArtifact(ctx, runID, models.RoleNormalized, normFilename, normLocal); err != nil {
		recordStage("normalize", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	recordStage("normalize", true, len(normResult.Rows), nil)

	status := models.RunStatusSuccess
	if len(normResult.Exceptions) > 0 {
		status = models.RunStatusPartial
	}

	// --- Resolve ---
	itemSnapshot, err := c.loadItemSnapshot(ctx)
	if err != nil {
		recordStage("resolve", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	ledgerSnapshot, err := c.loadLedgerSnapshot(ctx)
	if err != nil {
		recordStage("resolve", false, 0, err)
		return finish(models.RunStatusFailed)
	}

	approvalQueue := approval.New(c.DB)
	enriched := make([]rows.Enriched, 0, len(normResult.Rows))
	enqueuedItems := map[resolve.ItemKey]bool{}
	enqueuedLedgers := map[resolve.LedgerKey]bool{}
	unresolvedCount := 0

	for _, canon := range normResult.Rows {
		e := rows.Enriched{Canonical: canon}

		mapping, ok, payload := resolve.ResolveItem(itemSnapshot, canon.SKU, canon.ASIN)
		resolve.EnrichItem(&e, mapping, ok)
		if !ok {
			unresolvedCount++
			key := resolve.ItemKey{SKU: canon.SKU, ASIN: canon.ASIN}
			if !enqueuedItems[key] {
				enqueuedItems[key] = true
				_ = approvalQueue.EnqueueItem(ctx, payload)
			}
		}

		ledgerName, lok, lpayload := resolve.ResolveLedger(ledgerSnapshot, string(canon.Channel), canon.BuyerState, numbering.StateAbbr)
		resolve.EnrichLedger(&e, ledgerName, lok)
		if !lok {
			unresolvedCount++
			key := resolve.LedgerKey{Channel: string(canon.Channel), BuyerState: canon.BuyerState}
			if !enqueuedLedgers[key] {
				enqueuedLedgers[key] = true
				_ = approvalQueue.EnqueueLedger(ctx, lpayload)
			}
		}

		enriched = append(enriched, e)
	}

	pending, err := c.DB.CountPendingApprovals(ctx)
	if err != nil {
		recordStage("resolve", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	if pending > 0 && req.StrictMapping {
		recordStage("resolve", false, len(enriched), fmt.Errorf("%d pending approvals under strict_mapping", pending))
		return finish(models.RunStatusFailed)
	}
	enrichedFilename := fmt.Sprintf("%s_%s_%s_enriched.csv", req.Channel, req.GSTIN, req.Month)
	enrichedLocal := filepath.Join(tmpDir, enrichedFilename)
	if err := normalize.WriteEnrichedCSV(enrichedLocal, enriched); err != nil {
		recordStage("resolve", false, len(enriched), err)
		return finish(models.RunStatusFailed)
	}
	if err := c.writeArtifact(ctx, runID, models.RoleEnriched, enrichedFilename, enrichedLocal); err != nil {
		recordStage("resolve", false, len(enriched), err)
		return finish(models.RunStatusFailed)
	}
	recordStage("resolve", true, len(enriched), nil)
	if unresolvedCount > 0 {
		status = models.RunStatusPartial
	}

	// --- Tax + numbering ---
	taxResult, err := c.Allocator.Run(ctx, req.GSTIN, enriched)
	if err != nil {
		recordStage("tax", false, 0, err)
		c.Allocator.Release(ctx, taxResult.Reserved)
		return finish(models.RunStatusFailed)
	}
	if err := c.Allocator.Commit(ctx, taxResult.Reserved); err != nil {
		recordStage("tax", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	pricedFilename := fmt.Sprintf("%s_%s_%s_priced.csv", req.Channel, req.GSTIN, req.Month)
	pricedLocal := filepath.Join(tmpDir, pricedFilename)
	if err := normalize.WritePricedCSV(pricedLocal, taxResult.Priced); err != nil {
		recordStage("tax", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	if err := c.writeArtifact(ctx, runID, models.RoleWithTax, pricedFilename, pricedLocal); err != nil {
		recordStage("tax", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	recordStage("tax", true, len(taxResult.Priced), nil)

	for _, p := range taxResult.Priced {
		_ = c.DB.CreateTaxComputation(ctx, &models.TaxComputationRecord{
			RunID: runID, RowRef: p.OrderID, TaxableValue: p.TaxableValue,
			CGST: p.CGST, SGST: p.SGST, IGST: p.IGST, TotalTax: p.TotalTax, TotalAmount: p.TotalAmount,
		})
		_ = c.DB.CreateInvoiceRegistryEntry(ctx, &models.InvoiceRegistryEntry{
			InvoiceNo: p.InvoiceNo, RunID: runID, GSTIN: req.GSTIN, Channel: string(req.Channel),
			BuyerState: p.BuyerState, Month: req.Month, RowRef: p.OrderID,
		})
	}

	// --- Pivot ---
	pivotRows := pivot.Aggregate(string(req.Channel), taxResult.Priced)
	pivotFilename := fmt.Sprintf("%s_%s_%s_pivot.csv", req.Channel, req.GSTIN, req.Month)
	pivotLocal := filepath.Join(tmpDir, pivotFilename)
	if err := normalize.WritePivotCSV(pivotLocal, pivotRows); err != nil {
		recordStage("pivot", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	if err := c.writeArtifact(ctx, runID, models.RolePivot, pivotFilename, pivotLocal); err != nil {
		recordStage("pivot", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	recordStage("pivot", true, len(pivotRows), nil)
	for _, p := range pivotRows {
		buyerState := p.Key.BuyerState
		var buyerStatePtr *string
		if buyerState != "" {
			buyerStatePtr = &buyerState
		}
		_ = c.DB.CreatePivotSummary(ctx, &models.PivotSummary{
			RunID: runID, GSTIN: p.Key.GSTIN, Month: p.Key.Month, GSTRate: p.Key.GSTRate,
			LedgerName: p.Key.LedgerName, FG: p.Key.FG, BuyerState: buyerStatePtr,
			TotalQuantity: p.TotalQuantity, TotalTaxable: p.TotalTaxable,
			TotalCGST: p.TotalCGST, TotalSGST: p.TotalSGST, TotalIGST: p.TotalIGST,
		})
	}

	// --- Batch ---
	partitions, err := batch.Split(string(req.Channel), req.GSTIN, req.Month, pivotRows)
	if err != nil {
		recordStage("batch", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	for _, part := range partitions {
		batchLocal := filepath.Join(tmpDir, part.FileName)
		if err := normalize.WritePivotCSV(batchLocal, part.Rows); err != nil {
			recordStage("batch", false, 0, err)
			return finish(models.RunStatusFailed)
		}
		if err := c.writeArtifact(ctx, runID, models.RoleBatch, part.FileName, batchLocal); err != nil {
			recordStage("batch", false, 0, err)
			return finish(models.RunStatusFailed)
		}
		_ = c.DB.CreateBatchRegistryEntry(ctx, &models.BatchRegistryEntry{
			RunID: runID, Channel: string(req.Channel), GSTIN: req.GSTIN, Month: req.Month,
			FilePath: part.FileName, GSTRate: part.GSTRate, RecordCount: len(part.Rows),
		})
	}
	recordStage("batch", true, len(partitions), nil)

	// --- Voucher assembly ---
	runMonth, _ := time.Parse("2006-01", req.Month)
	ratePctHundred := decimal.NewFromInt(100)
	for _, part := range partitions {
		wb, err := voucher.AssembleSales(c.Templates, req.GSTIN, string(req.Channel), runMonth, part)
		if err != nil {
			recordStage("voucher", false, 0, err)
			return finish(models.RunStatusFailed)
		}
		workbookName := fmt.Sprintf("%s_%s_%s_%spct_x2beta.xlsx", req.Channel, req.GSTIN, req.Month, part.GSTRate.Mul(ratePctHundred).String())
		workbookLocal := filepath.Join(tmpDir, workbookName)
		if err := wb.SaveAs(workbookLocal); err != nil {
			recordStage("voucher", false, 0, err)
			return finish(models.RunStatusFailed)
		}
		if err := c.writeArtifact(ctx, runID, models.RoleVoucher, workbookName, workbookLocal); err != nil {
			recordStage("voucher", false, 0, err)
			return finish(models.RunStatusFailed)
		}
		_ = c.DB.CreateTallyExport(ctx, &models.TallyExportRecord{
			RunID: runID, Channel: string(req.Channel), GSTIN: req.GSTIN, Month: req.Month,
			GSTRate: part.GSTRate, FilePath: workbookName, RecordCount: len(part.Rows),
			ExportStatus: models.ExportStatusSuccess,
		})
	}
	recordStage("voucher", true, len(partitions), nil)

	return finish(status)
}

// writeArtifact uploads localPath to its canonical logical path in
// Storage and records the resulting URI as a ReportArtifact row.
func (c *Coordinator) writeArtifact(ctx context.Context, runID uuid.UUID, role models.ArtifactRole, filename, localPath string) error {
	logicalPath := storage.BuildPath(c.BucketPrefix, runID.String(), string(role), filename)
	uri, err := c.Storage.Put(ctx, localPath, logicalPath)
	if err != nil {
		return pipeerrors.Wrap(string(role), pipeerrors.StorageUnavailable, "upload artifact", err)
	}
	return c.DB.CreateArtifact(ctx, &models.ReportArtifact{RunID: runID, Role: role, FilePath: uri})
}

func (c *Coordinator) loadItemSnapshot(ctx context.Context) (resolve.ItemSnapshot, error) {
	items, err := c.DB.LoadItemMasterSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	snap := make(resolve.ItemSnapshot, len(items))
	for _, it := range items {
		snap[resolve.ItemKey{SKU: it.SKU, ASIN: it.ASIN}] = resolve.ItemMapping{FG: it.FG, GSTRate: it.GSTRate}
	}
	return snap, nil
}

func (c *Coordinator) loadLedgerSnapshot(ctx context.Context) (resolve.LedgerSnapshot, error) {
	ledgers, err := c.DB.LoadLedgerMasterSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	snap := make(resolve.LedgerSnapshot, len(ledgers))
	for _, l := range ledgers {
		snap[resolve.LedgerKey{Channel: l.Channel, BuyerState: l.BuyerState}] = l.LedgerName
	}
	return snap, nil
}

// ExpenseRequest is the seller-invoice expense pipeline's entry point input.
type ExpenseRequest struct {
	Channel     rows.Channel
	GSTIN       string
	Month       string
	InvoicePath string
}

// RunExpense executes the parse -> classify -> price -> assemble
// pipeline for one seller fee statement: it shares the Coordinator's
// Run lifecycle (a Run row, per-stage events, artifact persistence)
// but runs a single "expense" stage rather than the sales pipeline's
// six stages.
func (c *Coordinator) RunExpense(ctx context.Context, req ExpenseRequest) (Outcome, error) {
	inputHash, err := hashFile(req.InvoicePath)
	if err != nil {
		return Outcome{}, pipeerrors.Wrap("expense", pipeerrors.StorageUnavailable, "hash input file", err)
	}

	tmpDir, err := os.MkdirTemp("", "ledgerpipe-expense-*")
	if err != nil {
		return Outcome{}, pipeerrors.Wrap("expense", pipeerrors.StorageUnavailable, "create scratch directory", err)
	}
	defer os.RemoveAll(tmpDir)

	runRecord := &models.Run{
		Channel: string(req.Channel), GSTIN: req.GSTIN, Month: req.Month,
		Status: models.RunStatusRunning, StartedAt: time.Now(), InputHash: inputHash,
	}
	if err := c.DB.CreateRun(ctx, runRecord); err != nil {
		return Outcome{}, pipeerrors.Wrap("expense", pipeerrors.DatabaseUnavailable, "create run", err)
	}
	runID := runRecord.ID

	_ = c.Events.PublishRunOpened(ctx, events.RunOpened{
		RunID: runID.String(), GSTIN: req.GSTIN, Channel: string(req.Channel), Month: req.Month, At: time.Now(),
	})

	outcome := Outcome{RunID: runID}
	finish := func(status models.RunStatus) (Outcome, error) {
		outcome.Status = status
		if err := c.DB.FinishRun(ctx, runID, status); err != nil {
			return outcome, pipeerrors.Wrap("expense", pipeerrors.DatabaseUnavailable, "finish run", err)
		}
		_ = c.Events.PublishRunClosed(ctx, events.RunClosed{RunID: runID.String(), Status: string(status), At: time.Now()})
		return outcome, nil
	}
	recordStage := func(stage string, success bool, processed int, stageErr error) {
		msg := ""
		if stageErr != nil {
			msg = stageErr.Error()
		}
		outcome.Stages = append(outcome.Stages, StageResult{Stage: stage, Success: success, Processed: processed, Error: msg})
		_ = c.Events.PublishStageCompleted(ctx, events.StageCompleted{
			RunID: runID.String(), Stage: stage, Success: success, Processed: processed, Error: msg, At: time.Now(),
		})
	}

	parsed, err := expense.Parse(ctx, req.InvoicePath)
	if err != nil {
		recordStage("expense", false, 0, err)
		return finish(models.RunStatusFailed)
	}
	lines := expense.Classify(req.Channel, req.GSTIN, req.InvoicePath, c.StateTable, parsed)

	priced, err := expense.PriceLines(req.GSTIN, c.StateTable, lines)
	if err != nil {
		recordStage("expense", false, 0, err)
		return finish(models.RunStatusFailed)
	}

	for _, p := range priced {
		total := p.TaxableValue.Add(p.Split.TotalTax)
		status := models.SellerInvoiceProcessed
		_ = c.DB.CreateSellerInvoice(ctx, &models.SellerInvoice{
			RunID: runID, Channel: string(req.Channel), GSTIN: req.GSTIN,
			VendorInvoiceNo: p.VendorInvoiceNo, InvoiceDate: p.InvoiceDate, ExpenseType: p.ExpenseType,
			TaxableValue: p.TaxableValue, GSTRate: p.GSTRate,
			CGST: p.Split.CGST, SGST: p.Split.SGST, IGST: p.Split.IGST, TotalValue: total,
			LedgerName: p.LedgerName, SourceFile: p.SourceFile, ProcessingStatus: status,
		})
	}

	vouchers, err := voucher.AssembleExpense(req.GSTIN, req.Month, priced)
	if err != nil {
		recordStage("expense", false, len(priced), err)
		return finish(models.RunStatusFailed)
	}
	wb, err := voucher.WriteExpenseWorkbook(vouchers)
	if err != nil {
		recordStage("expense", false, len(priced), err)
		return finish(models.RunStatusFailed)
	}

	workbookName := fmt.Sprintf("%s_%s_%s_expense_vouchers.xlsx", req.Channel, req.GSTIN, req.Month)
	workbookLocal := filepath.Join(tmpDir, workbookName)
	if err := wb.SaveAs(workbookLocal); err != nil {
		recordStage("expense", false, len(priced), err)
		return finish(models.RunStatusFailed)
	}
	if err := c.writeArtifact(ctx, runID, models.RoleExpenseVoucher, workbookName, workbookLocal); err != nil {
		recordStage("expense", false, len(priced), err)
		return finish(models.RunStatusFailed)
	}

	totalTaxable, totalTax := decimal.Zero, decimal.Zero
	for _, p := range priced {
		totalTaxable = totalTaxable.Add(p.TaxableValue)
		totalTax = totalTax.Add(p.Split.TotalTax)
	}
	_ = c.DB.CreateExpenseExport(ctx, &models.ExpenseExportRecord{
		RunID: runID, Channel: string(req.Channel), GSTIN: req.GSTIN, Month: req.Month,
		FilePath: workbookName, RecordCount: len(priced),
		TotalTaxable: totalTaxable, TotalTax: totalTax, ExportStatus: models.ExportStatusSuccess,
	})

	recordStage("expense", true, len(priced), nil)
	return finish(models.RunStatusSuccess)
}
