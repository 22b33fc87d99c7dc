package apperrors

import (
	"errors"
	"fmt"
)

type MappingErrorKind string

const (
	MissingRequiredField MappingErrorKind = "missing_required_field"
	DuplicateTarget      MappingErrorKind = "duplicate_target"
	UnknownHeader        MappingErrorKind = "unknown_header"
	UnknownField         MappingErrorKind = "unknown_field"
)

// MappingError reports a field mapping that cannot be used for ingestion.
type MappingError struct {
	Kind   MappingErrorKind
	Field  string
	Header string
}

func (e *MappingError) Error() string {
	switch e.Kind {
	case MissingRequiredField:
		return fmt.Sprintf("required field %q is not mapped", e.Field)
	case DuplicateTarget:
		return fmt.Sprintf("field %q maps to header %q which is already used by another field", e.Field, e.Header)
	case UnknownHeader:
		return fmt.Sprintf("field %q maps to header %q which is not present in the file", e.Field, e.Header)
	case UnknownField:
		return fmt.Sprintf("unknown field %q", e.Field)
	}
	return fmt.Sprintf("invalid mapping for field %q", e.Field)
}

func NewMissingRequiredField(field string) error {
	return &MappingError{Kind: MissingRequiredField, Field: field}
}

func NewDuplicateTarget(field, header string) error {
	return &MappingError{Kind: DuplicateTarget, Field: field, Header: header}
}

// MalformedCSVError is returned when the uploaded file cannot be read as CSV.
// Line is 1-based; zero means the problem is not tied to a line.
type MalformedCSVError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedCSVError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed csv at line %d: %s", e.Line, e.Reason)
	}
	return "malformed csv: " + e.Reason
}

func (e *MalformedCSVError) Unwrap() error { return e.Err }

// ErrFileTooLarge is wrapped by the MalformedCSVError returned for uploads
// over the size limit.
var ErrFileTooLarge = errors.New("file too large")

// InvalidInputError rejects a request argument before any work starts.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RowTransformError aborts an ingestion on the first data row that cannot be
// converted. RowIndex is 1-based and excludes the header.
type RowTransformError struct {
	RowIndex int
	Reason   string
}

func (e *RowTransformError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowIndex, e.Reason)
}

type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	if e.Err == nil {
		return "decryption failed"
	}
	return "decryption failed: " + e.Err.Error()
}

func (e *DecryptionError) Unwrap() error { return e.Err }

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("campaign with name %q already exists", e.Name)
}

type NotFoundError struct {
	Entity string
	ID     int64
	Name   string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
	}
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

func NewCampaignNotFound(id int64) error {
	return &NotFoundError{Entity: "campaign", ID: id}
}

// StorageTransactionError wraps a failure of the underlying store. The core
// never retries these.
type StorageTransactionError struct {
	Op  string
	Err error
}

func (e *StorageTransactionError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageTransactionError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) error {
	return &StorageTransactionError{Op: op, Err: err}
}

type IngestStage string

const (
	StageParsingCSV        IngestStage = "parsing_csv"
	StageMappingValidation IngestStage = "mapping_validation"
	StageRowTransform      IngestStage = "row_transform"
	StageBatchPersist      IngestStage = "batch_persist"
)

// IngestError records the pipeline stage an ingestion failed in.
type IngestError struct {
	Stage IngestStage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed during %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsDuplicateName(err error) bool {
	var e *DuplicateNameError
	return errors.As(err, &e)
}

func IsDecryption(err error) bool {
	var e *DecryptionError
	return errors.As(err, &e)
}

// IsValidation reports whether err is caused by caller input rather than by
// the system.
func IsValidation(err error) bool {
	var (
		m *MappingError
		c *MalformedCSVError
		r *RowTransformError
		i *InvalidInputError
	)
	return errors.As(err, &m) || errors.As(err, &c) || errors.As(err, &r) || errors.As(err, &i)
}
