// Package errors declares the pipeline's error taxonomy as typed
// sentinel kinds rather than exception classes, so every stage result
// can be aggregated into a per-run exception report.
package errors

import "fmt"

// Kind is one of the fixed error taxonomy values.
type Kind string

const (
	SchemaMismatch       Kind = "SchemaMismatch"
	UnparseableRow       Kind = "UnparseableRow"
	EmptyInput           Kind = "EmptyInput"
	UnresolvedMasterData Kind = "UnresolvedMasterData"
	TaxSplitInvariant    Kind = "TaxSplitInvariant"
	InvoiceSequenceConflict Kind = "InvoiceSequenceConflict"
	TemplateInvalid      Kind = "TemplateInvalid"
	StorageUnavailable   Kind = "StorageUnavailable"
	DatabaseUnavailable  Kind = "DatabaseUnavailable"
	IntegrityCheckFailed Kind = "IntegrityCheckFailed"
	Cancelled            Kind = "Cancelled"
)

// Fatal kinds abort the stage (and usually the run) immediately.
var fatalKinds = map[Kind]bool{
	SchemaMismatch:       true,
	EmptyInput:           true,
	TaxSplitInvariant:    true,
	TemplateInvalid:      true,
	IntegrityCheckFailed: true,
	Cancelled:            true,
}

// Recoverable kinds are transient and eligible for retry with backoff.
var recoverableKinds = map[Kind]bool{
	InvoiceSequenceConflict: true,
	StorageUnavailable:      true,
	DatabaseUnavailable:     true,
}

// IsFatal reports whether a kind always aborts the stage.
func (k Kind) IsFatal() bool { return fatalKinds[k] }

// IsRecoverable reports whether a kind is retried with backoff before
// being treated as fatal.
func (k Kind) IsRecoverable() bool { return recoverableKinds[k] }

// Error wraps a Kind with a message and the underlying cause.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Stage, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Stage, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a taxonomy error for a stage.
func New(stage string, kind Kind, message string) *Error {
	return &Error{Stage: stage, Kind: kind, Message: message}
}

// Wrap builds a taxonomy error carrying an underlying cause.
func Wrap(stage string, kind Kind, message string, cause error) *Error {
	return &Error{Stage: stage, Kind: kind, Message: message, Cause: cause}
}

// RowException records a single recovered per-row failure (e.g.
// UnparseableRow) for the stage exception report.
type RowException struct {
	RowIndex int    `json:"row_index"`
	Kind     Kind   `json:"kind"`
	Message  string `json:"message"`
}

// StageReport is the (stage, error_kind, count, sample_message) summary
// the run summary exposes for a stage.
type StageReport struct {
	Stage         string         `json:"stage"`
	Kind          Kind           `json:"error_kind"`
	Count         int            `json:"count"`
	SampleMessage string         `json:"sample_message"`
	Exceptions    []RowException `json:"-"`
}
