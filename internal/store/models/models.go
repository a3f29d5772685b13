// Package models holds the GORM-backed persistence shapes and table
// contract for the pipeline's run state: UUID primary keys,
// decimal.Decimal for every money/rate field.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RunStatus is the terminal or in-flight status of a Run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusPartial RunStatus = "partial"
)

// Run is one end-to-end pipeline invocation (runs table).
type Run struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"run_id"`
	Channel    string    `gorm:"size:50;index:idx_runs_lookup" json:"channel"`
	GSTIN      string    `gorm:"size:15;index:idx_runs_lookup" json:"gstin"`
	Month      string    `gorm:"size:7;index:idx_runs_lookup" json:"month"`
	Status     RunStatus `gorm:"size:20;default:'running'" json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	InputHash  string    `gorm:"size:64;index:idx_runs_lookup" json:"input_hash"`
}

func (Run) TableName() string { return "runs" }

func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ArtifactRole is the role tag of a Report Artifact.
type ArtifactRole string

const (
	RoleRaw        ArtifactRole = "raw"
	RoleNormalized ArtifactRole = "normalized"
	RoleEnriched   ArtifactRole = "enriched"
	RoleWithTax    ArtifactRole = "with_tax"
	RoleFinal      ArtifactRole = "final"
	RolePivot      ArtifactRole = "pivot"
	RoleBatch      ArtifactRole = "batch"
	RoleVoucher    ArtifactRole = "voucher"
	RoleExpenseVoucher ArtifactRole = "expense_voucher"
)

// ReportArtifact is a file produced by a stage (reports table).
type ReportArtifact struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID       uuid.UUID    `gorm:"type:uuid;index;not null" json:"run_id"`
	Role        ArtifactRole `gorm:"size:20" json:"role"`
	FilePath    string       `gorm:"size:500" json:"file_path"`
	ContentHash string       `gorm:"size:64" json:"content_hash"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (ReportArtifact) TableName() string { return "reports" }

func (a *ReportArtifact) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ItemMaster maps a (sku, asin) pair to a finished good.
type ItemMaster struct {
	SKU          string          `gorm:"size:100;primaryKey" json:"sku"`
	ASIN         string          `gorm:"size:20;primaryKey" json:"asin"`
	ItemCode     string          `gorm:"size:50" json:"item_code"`
	FG           string          `gorm:"size:200" json:"fg"`
	GSTRate      decimal.Decimal `gorm:"type:decimal(5,4)" json:"gst_rate"`
	ApprovedBy   string          `gorm:"size:100" json:"approved_by"`
}

func (ItemMaster) TableName() string { return "item_master" }

// LedgerMaster maps (channel, buyer_state) to a ledger name.
type LedgerMaster struct {
	Channel    string `gorm:"size:50;primaryKey" json:"channel"`
	BuyerState string `gorm:"size:50;primaryKey" json:"buyer_state"`
	LedgerName string `gorm:"size:200" json:"ledger_name"`
	ApprovedBy string `gorm:"size:100" json:"approved_by"`
}

func (LedgerMaster) TableName() string { return "ledger_master" }

// ApprovalType distinguishes item vs ledger master-data approvals.
type ApprovalType string

const (
	ApprovalTypeItem   ApprovalType = "item"
	ApprovalTypeLedger ApprovalType = "ledger"
)

// ApprovalStatus is the lifecycle status of an Approval Request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is a pending master-data decision (approvals table).
// Payload is stored as JSON text, a free-form map of the proposed
// item/ledger master values.
type ApprovalRequest struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Type       ApprovalType   `gorm:"size:20" json:"type"`
	PayloadJSON string        `gorm:"type:text" json:"payload_json"`
	Status     ApprovalStatus `gorm:"size:20;default:'pending'" json:"status"`
	Approver   string         `gorm:"size:100" json:"approver,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
}

func (ApprovalRequest) TableName() string { return "approvals" }

func (a *ApprovalRequest) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// InvoiceSequence is the durable per-(gstin, channel, buyer_state,
// month) counter. NextValue is the committed high-water mark: the
// first not-yet-issued number of a stage that has actually committed.
// ReservedUpTo is always >= NextValue and marks the first number not
// yet handed out to any in-flight reservation, committed or not; it
// only moves forward at Reserve time and is the value that keeps
// concurrent reservations disjoint before any of them commits.
type InvoiceSequence struct {
	GSTIN        string `gorm:"size:15;primaryKey" json:"gstin"`
	Channel      string `gorm:"size:50;primaryKey" json:"channel"`
	BuyerState   string `gorm:"size:50;primaryKey" json:"buyer_state"`
	Month        string `gorm:"size:7;primaryKey" json:"month"`
	NextValue    int    `gorm:"default:1" json:"next_value"`
	ReservedUpTo int    `gorm:"default:1" json:"reserved_up_to"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }

// TaxComputationRecord persists a row's tax split for audit.
type TaxComputationRecord struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"run_id"`
	RowRef       string          `gorm:"size:100" json:"row_ref"`
	TaxableValue decimal.Decimal `gorm:"type:decimal(15,2)" json:"taxable_value"`
	CGST         decimal.Decimal `gorm:"type:decimal(15,2)" json:"cgst"`
	SGST         decimal.Decimal `gorm:"type:decimal(15,2)" json:"sgst"`
	IGST         decimal.Decimal `gorm:"type:decimal(15,2)" json:"igst"`
	TotalTax     decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_tax"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_amount"`
}

func (TaxComputationRecord) TableName() string { return "tax_computations" }

func (t *TaxComputationRecord) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// InvoiceRegistryEntry records an allocated invoice number.
type InvoiceRegistryEntry struct {
	InvoiceNo      string    `gorm:"size:50;primaryKey" json:"invoice_no"`
	RunID          uuid.UUID `gorm:"type:uuid;index;not null" json:"run_id"`
	GSTIN          string    `gorm:"size:15" json:"gstin"`
	Channel        string    `gorm:"size:50" json:"channel"`
	BuyerState     string    `gorm:"size:50" json:"buyer_state"`
	Month          string    `gorm:"size:7" json:"month"`
	SequenceNumber int       `json:"sequence_number"`
	RowRef         string    `gorm:"size:100" json:"row_ref"`
}

func (InvoiceRegistryEntry) TableName() string { return "invoice_registry" }

// PivotSummary is a persisted pivot row.
type PivotSummary struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"run_id"`
	GSTIN         string          `gorm:"size:15" json:"gstin"`
	Month         string          `gorm:"size:7" json:"month"`
	GSTRate       decimal.Decimal `gorm:"type:decimal(5,4)" json:"gst_rate"`
	LedgerName    string          `gorm:"size:200" json:"ledger_name"`
	FG            string          `gorm:"size:200" json:"fg"`
	BuyerState    *string         `gorm:"size:50" json:"buyer_state,omitempty"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalTaxable  decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_taxable"`
	TotalCGST     decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_cgst"`
	TotalSGST     decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_sgst"`
	TotalIGST     decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_igst"`
}

func (PivotSummary) TableName() string { return "pivot_summaries" }

func (p *PivotSummary) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BatchRegistryEntry records one GST-rate batch artifact.
type BatchRegistryEntry struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"run_id"`
	Channel     string          `gorm:"size:50" json:"channel"`
	GSTIN       string          `gorm:"size:15" json:"gstin"`
	Month       string          `gorm:"size:7" json:"month"`
	GSTRate     decimal.Decimal `gorm:"type:decimal(5,4)" json:"gst_rate"`
	FilePath    string          `gorm:"size:500" json:"file_path"`
	RecordCount int             `json:"record_count"`
}

func (BatchRegistryEntry) TableName() string { return "batch_registry" }

func (b *BatchRegistryEntry) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ExportStatus is the terminal status of a workbook export.
type ExportStatus string

const (
	ExportStatusSuccess ExportStatus = "success"
	ExportStatusFailed  ExportStatus = "failed"
)

// TallyExportRecord records one sales voucher workbook export.
type TallyExportRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"run_id"`
	Channel       string          `gorm:"size:50" json:"channel"`
	GSTIN         string          `gorm:"size:15" json:"gstin"`
	Month         string          `gorm:"size:7" json:"month"`
	GSTRate       decimal.Decimal `gorm:"type:decimal(5,4)" json:"gst_rate"`
	TemplateName  string          `gorm:"size:200" json:"template_name"`
	FilePath      string          `gorm:"size:500" json:"file_path"`
	FileSize      int64           `json:"file_size"`
	RecordCount   int             `json:"record_count"`
	TotalTaxable  decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_taxable"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_tax"`
	ExportStatus  ExportStatus    `gorm:"size:20" json:"export_status"`
}

func (TallyExportRecord) TableName() string { return "tally_exports" }

func (t *TallyExportRecord) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// SellerInvoiceProcessingStatus tracks a parsed fee-statement line item.
type SellerInvoiceProcessingStatus string

const (
	SellerInvoiceProcessed SellerInvoiceProcessingStatus = "processed"
	SellerInvoiceFailed    SellerInvoiceProcessingStatus = "failed"
)

// SellerInvoice is a parsed seller fee-statement line item.
type SellerInvoice struct {
	ID              uuid.UUID                     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID           uuid.UUID                     `gorm:"type:uuid;index;not null" json:"run_id"`
	Channel         string                        `gorm:"size:50" json:"channel"`
	GSTIN           string                        `gorm:"size:15" json:"gstin"`
	VendorInvoiceNo string                        `gorm:"size:100" json:"vendor_invoice_no"`
	InvoiceDate     time.Time                     `json:"invoice_date"`
	ExpenseType     string                        `gorm:"size:100" json:"expense_type"`
	TaxableValue    decimal.Decimal               `gorm:"type:decimal(15,2)" json:"taxable_value"`
	GSTRate         decimal.Decimal               `gorm:"type:decimal(5,4)" json:"gst_rate"`
	CGST            decimal.Decimal               `gorm:"type:decimal(15,2)" json:"cgst"`
	SGST            decimal.Decimal               `gorm:"type:decimal(15,2)" json:"sgst"`
	IGST            decimal.Decimal               `gorm:"type:decimal(15,2)" json:"igst"`
	TotalValue      decimal.Decimal               `gorm:"type:decimal(15,2)" json:"total_value"`
	LedgerName      string                        `gorm:"size:200" json:"ledger_name"`
	SourceFile      string                        `gorm:"size:500" json:"source_file"`
	ProcessingStatus SellerInvoiceProcessingStatus `gorm:"size:20" json:"processing_status"`
}

func (SellerInvoice) TableName() string { return "seller_invoices" }

func (s *SellerInvoice) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ExpenseExportRecord records one expense voucher workbook export.
type ExpenseExportRecord struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"run_id"`
	Channel      string          `gorm:"size:50" json:"channel"`
	GSTIN        string          `gorm:"size:15" json:"gstin"`
	Month        string          `gorm:"size:7" json:"month"`
	FilePath     string          `gorm:"size:500" json:"file_path"`
	RecordCount  int             `json:"record_count"`
	TotalTaxable decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_taxable"`
	TotalTax     decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_tax"`
	ExportStatus ExportStatus    `gorm:"size:20" json:"export_status"`
}

func (ExpenseExportRecord) TableName() string { return "expense_exports" }

func (e *ExpenseExportRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AllModels lists every model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Run{}, &ReportArtifact{}, &ItemMaster{}, &LedgerMaster{},
		&ApprovalRequest{}, &InvoiceSequence{}, &TaxComputationRecord{},
		&InvoiceRegistryEntry{}, &PivotSummary{}, &BatchRegistryEntry{},
		&TallyExportRecord{}, &SellerInvoice{}, &ExpenseExportRecord{},
	}
}
