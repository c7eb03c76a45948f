// Package finance holds use cases over marketplace invoices.
package finance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	csvimport "github.com/sellerpnl/backend/internal/infrastructure/import"
	"github.com/sellerpnl/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerService = "finance"

	// DefaultMaxImportRows caps an upload when no limit is configured
	DefaultMaxImportRows = 10000
	maxImportErrors      = 100
)

// Invoice import columns
const (
	ColumnKind            = "kind"
	ColumnInvoiceDate     = "invoice_date"
	ColumnAmount          = "amount"
	ColumnOrderID         = "order_id"
	ColumnOrderNumber     = "order_number"
	ColumnBarcode         = "barcode"
	ColumnTransactionType = "transaction_type"
	ColumnDescription     = "description"
	ColumnCommissionRate  = "commission_rate"
	ColumnReturnShipment  = "return_shipment"
)

// RequiredColumns must appear in the header row
var RequiredColumns = []string{ColumnKind, ColumnInvoiceDate, ColumnAmount}

// ImportInvoicesCommand uploads invoice lines for one store
type ImportInvoicesCommand struct {
	StoreID uuid.UUID
	File    io.Reader
	// DryRun validates without writing
	DryRun bool
}

// ImportResult reports an invoice upload. Nothing is written unless every row is valid.
type ImportResult struct {
	StoreID     uuid.UUID            `json:"store_id"`
	DryRun      bool                 `json:"dry_run"`
	TotalRows   int                  `json:"total_rows"`
	ValidRows   int                  `json:"valid_rows"`
	Imported    int                  `json:"imported"`
	ByKind      map[string]int       `json:"by_kind"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"total_errors,omitempty"`
	IsTruncated bool                 `json:"is_truncated,omitempty"`
	ArchiveKey  string               `json:"archive_key,omitempty"`
}

// UploadArchive keeps the raw file of every accepted upload
type UploadArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// InvoiceImportService loads marketplace invoice exports from CSV
type InvoiceImportService struct {
	stores   seller.StoreRepository
	invoices finance.InvoiceRepository
	archive  UploadArchive
	maxRows  int
	logger   *zap.Logger
	now      func() time.Time
}

// NewInvoiceImportService creates a new InvoiceImportService. maxRows <= 0 uses DefaultMaxImportRows.
func NewInvoiceImportService(stores seller.StoreRepository, invoices finance.InvoiceRepository, maxRows int, log *zap.Logger) *InvoiceImportService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxImportRows
	}
	return &InvoiceImportService{stores: stores, invoices: invoices, maxRows: maxRows, logger: log, now: time.Now}
}

// SetArchive enables archiving of imported files
func (s *InvoiceImportService) SetArchive(archive UploadArchive) {
	s.archive = archive
}

// ValidationRules returns the per-column rules applied to every row
func (s *InvoiceImportService) ValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(ColumnKind).Required().OneOf(
			string(finance.InvoiceKindDeduction),
			string(finance.InvoiceKindCargo),
			string(finance.InvoiceKindCommission),
		).Build(),
		csvimport.Field(ColumnInvoiceDate).Required().Date().Build(),
		csvimport.Field(ColumnAmount).Required().Decimal().Build(),
		csvimport.Field(ColumnOrderID).UUID().Build(),
		csvimport.Field(ColumnOrderNumber).MaxLength(64).Build(),
		csvimport.Field(ColumnBarcode).MaxLength(64).Build(),
		csvimport.Field(ColumnTransactionType).MaxLength(100).Build(),
		csvimport.Field(ColumnDescription).MaxLength(500).Build(),
		csvimport.Field(ColumnCommissionRate).Decimal().Range(decimal.Zero, decimal.NewFromInt(100)).Build(),
		csvimport.Field(ColumnReturnShipment).Bool().Build(),
	}
}

// Import validates every row, then writes all lines in one batch
func (s *InvoiceImportService) Import(ctx context.Context, cmd ImportInvoicesCommand) (result *ImportResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "ImportInvoices",
		attribute.String("store.id", cmd.StoreID.String()),
		attribute.Bool("import.dry_run", cmd.DryRun),
	)
	defer func() { telemetry.End(span, err) }()

	if _, err := s.stores.FindByID(ctx, cmd.StoreID); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(cmd.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	parser, err := csvimport.NewCSVParser(bytes.NewReader(raw), csvimport.WithMaxRows(s.maxRows))
	if err != nil {
		return nil, fileError(err)
	}
	if missing := parser.MissingHeaders(RequiredColumns); len(missing) > 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Missing columns: "+strings.Join(missing, ", "))
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, fileError(err)
	}

	validator := csvimport.NewFieldValidator(s.ValidationRules(), maxImportErrors)
	result = &ImportResult{StoreID: cmd.StoreID, DryRun: cmd.DryRun, TotalRows: len(rows), ByKind: map[string]int{}}
	lines := make([]*finance.InvoiceLine, 0, len(rows))
	for _, row := range rows {
		if !validator.ValidateRow(row) {
			continue
		}
		line, err := toInvoiceLine(cmd.StoreID, row)
		if err != nil {
			validator.Errors().Add(csvimport.RowError{Row: row.LineNumber, Code: csvimport.ErrCodeInvalidValue, Message: err.Error()})
			continue
		}
		lines = append(lines, line)
		result.ByKind[string(line.Kind)]++
	}
	result.ValidRows = len(lines)

	if errs := validator.Errors(); errs.HasErrors() {
		result.Errors = errs.Errors()
		result.TotalErrors = errs.TotalCount()
		result.IsTruncated = errs.IsTruncated()
		s.logger.Info("Invoice import rejected",
			zap.String("store_id", cmd.StoreID.String()),
			zap.Int("rows", result.TotalRows),
			zap.Int("errors", result.TotalErrors),
		)
		return result, nil
	}
	if cmd.DryRun {
		return result, nil
	}

	if err := s.invoices.CreateBatch(ctx, lines); err != nil {
		return nil, err
	}
	result.Imported = len(lines)
	span.SetAttributes(attribute.Int("import.lines", result.Imported))
	result.ArchiveKey = s.archiveUpload(ctx, cmd.StoreID, raw)

	s.logger.Info("Invoice lines imported",
		zap.String("store_id", cmd.StoreID.String()),
		zap.Int("lines", result.Imported),
	)
	return result, nil
}

// archiveUpload stores the raw file. The lines are already committed, so a
// failure is logged and leaves ArchiveKey empty.
func (s *InvoiceImportService) archiveUpload(ctx context.Context, storeID uuid.UUID, raw []byte) string {
	if s.archive == nil {
		return ""
	}
	key := ArchiveKey(storeID, s.now(), uuid.New())
	if err := s.archive.Put(ctx, key, raw, "text/csv"); err != nil {
		s.logger.Warn("Failed to archive invoice upload",
			zap.String("store_id", storeID.String()),
			zap.String("key", key),
			zap.Error(err),
		)
		return ""
	}
	return key
}

// ArchiveKey names an archived upload: invoices/<store>/<yyyy>/<mm>/<timestamp>-<id>.csv
func ArchiveKey(storeID uuid.UUID, at time.Time, id uuid.UUID) string {
	at = at.UTC()
	return fmt.Sprintf("invoices/%s/%s/%s-%s.csv", storeID, at.Format("2006/01"), at.Format("20060102T150405Z"), id)
}

// toInvoiceLine builds a line from a row the validator already accepted
func toInvoiceLine(storeID uuid.UUID, row *csvimport.Row) (*finance.InvoiceLine, error) {
	kind := finance.InvoiceKind(strings.ToLower(row.Get(ColumnKind)))
	amount, _ := csvimport.ParseDecimal(row.Get(ColumnAmount))
	date, _ := csvimport.ParseDate(row.Get(ColumnInvoiceDate))

	line, err := finance.NewInvoiceLine(storeID, kind, amount, date)
	if err != nil {
		return nil, err
	}
	line.OrderNumber = row.Get(ColumnOrderNumber)
	line.Barcode = row.Get(ColumnBarcode)
	line.TransactionType = row.Get(ColumnTransactionType)
	line.Description = row.Get(ColumnDescription)

	if v := row.Get(ColumnOrderID); v != "" {
		id := uuid.MustParse(v)
		line.OrderID = &id
	}
	if v := row.Get(ColumnCommissionRate); v != "" {
		if kind != finance.InvoiceKindCommission {
			return nil, errors.New("commission_rate is only allowed on commission lines")
		}
		rate, _ := csvimport.ParseDecimal(v)
		line.CommissionRate = &rate
	}
	if v := row.Get(ColumnReturnShipment); v != "" {
		isReturn, _ := csvimport.ParseBool(v)
		if isReturn && kind != finance.InvoiceKindCargo {
			return nil, errors.New("return_shipment is only allowed on cargo lines")
		}
		line.IsReturnShipment = isReturn
	}
	return line, nil
}

// fileError turns a file-level parse failure into an input error
func fileError(err error) error {
	for _, target := range []error{
		csvimport.ErrEmptyFile,
		csvimport.ErrInvalidEncoding,
		csvimport.ErrMissingHeader,
		csvimport.ErrNoDataRows,
		csvimport.ErrMalformedRow,
		csvimport.ErrTooManyRows,
	} {
		if errors.Is(err, target) {
			return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
	}
	return err
}
