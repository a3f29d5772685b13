// Package approval implements the Approval Queue: an append-only queue
// of pending master-data decisions whose approvals idempotently upsert
// into the item/ledger master tables.
package approval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/resolve"
	"github.com/ledgerpipe/ledgerpipe/internal/store"
	"github.com/ledgerpipe/ledgerpipe/internal/store/models"
)

// Queue is the Approval Queue collaborator.
type Queue struct {
	db *store.DB
}

// New returns a Queue backed by db.
func New(db *store.DB) *Queue { return &Queue{db: db} }

// EnqueueItem records a new pending item-mapping approval request on
// every call; it does not look for an existing pending request with the
// same (sku, asin). Duplicates across a dataset are deduplicated to one
// request by the caller tracking seen keys, not by the queue itself.
func (q *Queue) EnqueueItem(ctx context.Context, payload resolve.ItemApprovalPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("approval: marshal item payload: %w", err)
	}
	return q.db.CreateApproval(ctx, &models.ApprovalRequest{
		Type:        models.ApprovalTypeItem,
		PayloadJSON: string(raw),
		Status:      models.ApprovalPending,
	})
}

// EnqueueLedger records a pending ledger-mapping approval request.
func (q *Queue) EnqueueLedger(ctx context.Context, payload resolve.LedgerApprovalPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("approval: marshal ledger payload: %w", err)
	}
	return q.db.CreateApproval(ctx, &models.ApprovalRequest{
		Type:        models.ApprovalTypeLedger,
		PayloadJSON: string(raw),
		Status:      models.ApprovalPending,
	})
}

// List returns pending (or other status) requests, optionally filtered by type.
func (q *Queue) List(ctx context.Context, status models.ApprovalStatus, approvalType *models.ApprovalType) ([]models.ApprovalRequest, error) {
	return q.db.ListApprovals(ctx, status, approvalType)
}

// ItemOverride lets an approver correct the suggested mapping before commit.
type ItemOverride struct {
	FG      string
	GSTRate decimal.Decimal
}

// LedgerOverride lets an approver correct the suggested ledger name.
type LedgerOverride struct {
	LedgerName string
}

// DecideItem approves or rejects an item approval request. On
// approval it performs an idempotent upsert into item_master using
// the (possibly overridden) payload.
func (q *Queue) DecideItem(ctx context.Context, id uuid.UUID, approved bool, approver string, override *ItemOverride) error {
	status := models.ApprovalRejected
	if approved {
		status = models.ApprovalApproved
	}

	if approved {
		requests, err := q.db.ListApprovals(ctx, models.ApprovalPending, itemTypePtr())
		if err != nil {
			return err
		}
		var payload resolve.ItemApprovalPayload
		found := false
		for _, r := range requests {
			if r.ID == id {
				if err := json.Unmarshal([]byte(r.PayloadJSON), &payload); err != nil {
					return fmt.Errorf("approval: unmarshal item payload: %w", err)
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("approval: item request %s not pending", id)
		}

		fg := payload.SuggestedFG
		rate, _ := decimal.NewFromString(payload.SuggestedRate)
		if override != nil {
			if override.FG != "" {
				fg = override.FG
			}
			if !override.GSTRate.IsZero() {
				rate = override.GSTRate
			}
		}

		if err := q.db.UpsertItemMaster(ctx, &models.ItemMaster{
			SKU: payload.SKU, ASIN: payload.ASIN, FG: fg, GSTRate: rate, ApprovedBy: approver,
		}); err != nil {
			return err
		}
	}

	return q.db.DecideApproval(ctx, id, status, approver)
}

// DecideLedger approves or rejects a ledger approval request. On
// approval it performs an idempotent upsert into ledger_master.
func (q *Queue) DecideLedger(ctx context.Context, id uuid.UUID, approved bool, approver string, override *LedgerOverride) error {
	status := models.ApprovalRejected
	if approved {
		status = models.ApprovalApproved
	}

	if approved {
		requests, err := q.db.ListApprovals(ctx, models.ApprovalPending, ledgerTypePtr())
		if err != nil {
			return err
		}
		var payload resolve.LedgerApprovalPayload
		found := false
		for _, r := range requests {
			if r.ID == id {
				if err := json.Unmarshal([]byte(r.PayloadJSON), &payload); err != nil {
					return fmt.Errorf("approval: unmarshal ledger payload: %w", err)
				}
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("approval: ledger request %s not pending", id)
		}

		ledgerName := payload.SuggestedLedgerName
		if override != nil && override.LedgerName != "" {
			ledgerName = override.LedgerName
		}

		if err := q.db.UpsertLedgerMaster(ctx, &models.LedgerMaster{
			Channel: payload.Channel, BuyerState: payload.BuyerState, LedgerName: ledgerName, ApprovedBy: approver,
		}); err != nil {
			return err
		}
	}

	return q.db.DecideApproval(ctx, id, status, approver)
}

// BulkDecideItems applies the same approver and approved/rejected
// decision to a list of item request IDs.
func (q *Queue) BulkDecideItems(ctx context.Context, ids []uuid.UUID, approved bool, approver string) error {
	for _, id := range ids {
		if err := q.DecideItem(ctx, id, approved, approver, nil); err != nil {
			return err
		}
	}
	return nil
}

// BulkDecideLedgers applies the same approver and approved/rejected
// decision to a list of ledger request IDs.
func (q *Queue) BulkDecideLedgers(ctx context.Context, ids []uuid.UUID, approved bool, approver string) error {
	for _, id := range ids {
		if err := q.DecideLedger(ctx, id, approved, approver, nil); err != nil {
			return err
		}
	}
	return nil
}

func itemTypePtr() *models.ApprovalType {
	t := models.ApprovalTypeItem
	return &t
}

func ledgerTypePtr() *models.ApprovalType {
	t := models.ApprovalTypeLedger
	return &t
}
