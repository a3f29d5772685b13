// Package store is the database collaborator: a GORM-backed Postgres
// repository over the pipeline's full table set, exposed as a thin
// interface over *gorm.DB.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerpipe/ledgerpipe/internal/store/models"
)

var ErrNotFound = errors.New("ledgerpipe/store: record not found")

// DB wraps *gorm.DB with the table set and upsert helpers the pipeline
// needs across runs, masters, approvals, sequences, and exports.
type DB struct {
	gorm *gorm.DB
}

// Open connects to Postgres and runs AutoMigrate over every model.
func Open(dsn string) (*DB, error) {
	gdb, err := gorm.Open(postgresOpen(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := gdb.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("store: automigrate: %w", err)
	}
	return &DB{gorm: gdb}, nil
}

// NewFromGORM wraps an already-opened *gorm.DB.
func NewFromGORM(gdb *gorm.DB) *DB { return &DB{gorm: gdb} }

// Ping verifies the underlying connection is reachable, for readiness checks.
func (d *DB) Ping() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// --- Runs ---

func (d *DB) CreateRun(ctx context.Context, run *models.Run) error {
	return d.gorm.WithContext(ctx).Create(run).Error
}

func (d *DB) FindLatestSuccessfulRun(ctx context.Context, gstin, channel, month, inputHash string) (*models.Run, error) {
	var run models.Run
	err := d.gorm.WithContext(ctx).
		Where("gstin = ? AND channel = ? AND month = ? AND input_hash = ? AND status = ?",
			gstin, channel, month, inputHash, models.RunStatusSuccess).
		Order("started_at desc").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DB) GetRun(ctx context.Context, runID uuid.UUID) (*models.Run, error) {
	var run models.Run
	err := d.gorm.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DB) FinishRun(ctx context.Context, runID uuid.UUID, status models.RunStatus) error {
	now := time.Now()
	return d.gorm.WithContext(ctx).Model(&models.Run{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{"status": status, "finished_at": now}).Error
}

// --- Report artifacts ---

func (d *DB) CreateArtifact(ctx context.Context, a *models.ReportArtifact) error {
	return d.gorm.WithContext(ctx).Create(a).Error
}

func (d *DB) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]models.ReportArtifact, error) {
	var out []models.ReportArtifact
	err := d.gorm.WithContext(ctx).Where("run_id = ?", runID).Order("created_at asc").Find(&out).Error
	return out, err
}

// --- Item / Ledger masters ---

func (d *DB) LoadItemMasterSnapshot(ctx context.Context) ([]models.ItemMaster, error) {
	var out []models.ItemMaster
	err := d.gorm.WithContext(ctx).Find(&out).Error
	return out, err
}

func (d *DB) LoadLedgerMasterSnapshot(ctx context.Context) ([]models.LedgerMaster, error) {
	var out []models.LedgerMaster
	err := d.gorm.WithContext(ctx).Find(&out).Error
	return out, err
}

// UpsertItemMaster idempotently inserts or updates an item master row
// on (sku, asin) conflict, the approval queue's decide() commit path.
func (d *DB) UpsertItemMaster(ctx context.Context, item *models.ItemMaster) error {
	return d.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}, {Name: "asin"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_code", "fg", "gst_rate", "approved_by"}),
	}).Create(item).Error
}

// UpsertLedgerMaster idempotently inserts or updates a ledger master
// row on (channel, buyer_state) conflict.
func (d *DB) UpsertLedgerMaster(ctx context.Context, ledger *models.LedgerMaster) error {
	return d.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel"}, {Name: "buyer_state"}},
		DoUpdates: clause.AssignmentColumns([]string{"ledger_name", "approved_by"}),
	}).Create(ledger).Error
}

// --- Approvals ---

func (d *DB) CreateApproval(ctx context.Context, a *models.ApprovalRequest) error {
	return d.gorm.WithContext(ctx).Create(a).Error
}

func (d *DB) ListApprovals(ctx context.Context, status models.ApprovalStatus, approvalType *models.ApprovalType) ([]models.ApprovalRequest, error) {
	q := d.gorm.WithContext(ctx).Where("status = ?", status)
	if approvalType != nil {
		q = q.Where("type = ?", *approvalType)
	}
	var out []models.ApprovalRequest
	err := q.Order("created_at asc").Find(&out).Error
	return out, err
}

func (d *DB) DecideApproval(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, approver string) error {
	now := time.Now()
	return d.gorm.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "approver": approver, "decided_at": now}).Error
}

func (d *DB) CountPendingApprovals(ctx context.Context) (int64, error) {
	var count int64
	err := d.gorm.WithContext(ctx).Model(&models.ApprovalRequest{}).
		Where("status = ?", models.ApprovalPending).Count(&count).Error
	return count, err
}

// --- Invoice sequences ---

// ReserveSequence locks the (gstin, channel, buyer_state, month) row
// FOR UPDATE inside a transaction and returns the first value of a
// contiguous block of n, advancing only reserved_up_to — next_value
// (the committed high-water mark actually used for numbering
// continuation) is untouched until CommitSequence persists this exact
// range. Reservations are held in memory by the caller until the
// stage commits, per the reserve/commit/release allocator contract.
func (d *DB) ReserveSequence(ctx context.Context, gstin, channel, buyerState, month string, n int) (first int, err error) {
	var firstValue int
	txErr := d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.InvoiceSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gstin = ? AND channel = ? AND buyer_state = ? AND month = ?", gstin, channel, buyerState, month).
			First(&seq).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = models.InvoiceSequence{GSTIN: gstin, Channel: channel, BuyerState: buyerState, Month: month, NextValue: 1, ReservedUpTo: 1}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if seq.ReservedUpTo < seq.NextValue {
			seq.ReservedUpTo = seq.NextValue
		}
		firstValue = seq.ReservedUpTo
		return tx.Model(&models.InvoiceSequence{}).
			Where("gstin = ? AND channel = ? AND buyer_state = ? AND month = ?", gstin, channel, buyerState, month).
			Update("reserved_up_to", seq.ReservedUpTo+n).Error
	})
	if txErr != nil {
		return 0, txErr
	}
	return firstValue, nil
}

// CommitSequence persists a previously-reserved [first, first+n) range
// by advancing next_value to cover it, the durable write performed once
// the tax stage has succeeded.
// Committing is idempotent and safe to call with a range already
// covered by next_value (e.g. a retried commit).
func (d *DB) CommitSequence(ctx context.Context, gstin, channel, buyerState, month string, first, n int) error {
	return d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.InvoiceSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gstin = ? AND channel = ? AND buyer_state = ? AND month = ?", gstin, channel, buyerState, month).
			First(&seq).Error
		if err != nil {
			return err
		}
		committedThrough := first + n
		if committedThrough <= seq.NextValue {
			return nil
		}
		return tx.Model(&models.InvoiceSequence{}).
			Where("gstin = ? AND channel = ? AND buyer_state = ? AND month = ?", gstin, channel, buyerState, month).
			Update("next_value", committedThrough).Error
	})
}

// RollbackSequence gives back the specific [first, first+n) range this
// allocation reserved, so an aborted stage does not burn invoice
// numbers it never issued. It only reclaims the range when it sits at
// the tail of reserved_up_to (nothing has been reserved after it); if
// another reservation has since been issued past this range, the
// range is left as a permanent gap rather than risk corrupting that
// later, still-outstanding reservation.
func (d *DB) RollbackSequence(ctx context.Context, gstin, channel, buyerState, month string, first, n int) error {
	return d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.InvoiceSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("gstin = ? AND channel = ? AND buyer_state = ? AND month = ?", gstin, channel, buyerState, month).
			First(&seq).Error
		if err != nil {
			return err
		}
		if seq.ReservedUpTo != first+n {
			return nil
		}
		return tx.Model(&models.InvoiceSequence{}).
			Where("gstin = ? AND channel = ? AND buyer_state = ? AND month = ?", gstin, channel, buyerState, month).
			Update("reserved_up_to", first).Error
	})
}

// --- Tax computations / invoice registry ---

func (d *DB) CreateTaxComputation(ctx context.Context, rec *models.TaxComputationRecord) error {
	return d.gorm.WithContext(ctx).Create(rec).Error
}

func (d *DB) CreateInvoiceRegistryEntry(ctx context.Context, entry *models.InvoiceRegistryEntry) error {
	return d.gorm.WithContext(ctx).Create(entry).Error
}

// --- Pivot / batch / exports ---

func (d *DB) CreatePivotSummary(ctx context.Context, p *models.PivotSummary) error {
	return d.gorm.WithContext(ctx).Create(p).Error
}

func (d *DB) CreateBatchRegistryEntry(ctx context.Context, b *models.BatchRegistryEntry) error {
	return d.gorm.WithContext(ctx).Create(b).Error
}

func (d *DB) CreateTallyExport(ctx context.Context, t *models.TallyExportRecord) error {
	return d.gorm.WithContext(ctx).Create(t).Error
}

func (d *DB) CreateSellerInvoice(ctx context.Context, s *models.SellerInvoice) error {
	return d.gorm.WithContext(ctx).Create(s).Error
}

func (d *DB) CreateExpenseExport(ctx context.Context, e *models.ExpenseExportRecord) error {
	return d.gorm.WithContext(ctx).Create(e).Error
}
