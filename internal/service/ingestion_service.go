// Package service holds the use cases behind the HTTP handlers: file and
// manual ingestion, dashboard aggregation, authentication and contact
// messages.
package service

import (
	"context"
	"errors"
	"sort"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/insightedge-bfa-go/internal/ingest"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ingestTracer = otel.Tracer("service/ingestion")

const (
	msgUploaded = "Data uploaded successfully"
	msgSaved    = "Data saved successfully"
)

// IngestionService turns uploads and manual entries into persisted
// financial records. A batch is parsed and normalized completely before
// anything reaches the store.
type IngestionService struct {
	store    port.RecordStore
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(store port.RecordStore, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *IngestionService {
	return &IngestionService{
		store:    store,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// UploadFile (POST /v1/data/upload)
// ============================================================

func (s *IngestionService) UploadFile(ctx context.Context, ownerID, filename string, data []byte) (*domain.UploadResult, error) {
	ctx, span := ingestTracer.Start(ctx, "IngestionService.UploadFile")
	defer span.End()

	ext := ingest.ExtensionOf(filename)
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("file.ext", ext),
		attribute.Int("file.size", len(data)),
	)

	sourceType, err := ingest.SourceTypeFor(ext)
	if err != nil {
		return nil, s.fail(span, ownerID, err)
	}

	records, err := s.prepare(ctx, func() ([]domain.FinancialRecord, error) {
		rows, err := ingest.Parse(data, ext)
		if err != nil {
			return nil, err
		}
		return ingest.NormalizeBatch(rows, ownerID, domain.Provenance{
			SourceType:  sourceType,
			SourceLabel: filename,
		})
	})
	if err != nil {
		return nil, s.fail(span, ownerID, err)
	}

	n, err := s.persist(ctx, records, sourceType)
	if err != nil {
		return nil, s.fail(span, ownerID, err)
	}

	s.logger.Info("file ingested",
		zap.String("owner_id", ownerID),
		zap.String("filename", filename),
		zap.String("source_type", string(sourceType)),
		zap.Int("count", n),
	)

	return &domain.UploadResult{
		OwnerID:  ownerID,
		Filename: filename,
		FileType: ext,
		Count:    n,
		Message:  msgUploaded,
	}, nil
}

// ============================================================
// SaveManual (POST /v1/data/manual)
// ============================================================

func (s *IngestionService) SaveManual(ctx context.Context, ownerID string, rows []domain.RawRow) (*domain.ManualEntryResult, error) {
	ctx, span := ingestTracer.Start(ctx, "IngestionService.SaveManual")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.Int("rows", len(rows)),
	)

	if len(rows) == 0 {
		return nil, &domain.ErrValidation{Field: "data", Message: "Invalid data format"}
	}

	records, err := s.prepare(ctx, func() ([]domain.FinancialRecord, error) {
		return ingest.NormalizeBatch(rows, ownerID, domain.Provenance{
			SourceType:  domain.SourceManual,
			SourceLabel: domain.ManualEntryLabel,
		})
	})
	if err != nil {
		return nil, s.fail(span, ownerID, err)
	}

	n, err := s.persist(ctx, records, domain.SourceManual)
	if err != nil {
		return nil, s.fail(span, ownerID, err)
	}

	s.logger.Info("manual entries saved",
		zap.String("owner_id", ownerID),
		zap.Int("count", n),
	)

	return &domain.ManualEntryResult{Count: n, Message: msgSaved}, nil
}

// ============================================================
// ListRecords (GET /v1/data)
// ============================================================

// ListRecords returns every record the owner has, latest business date
// first. Records sharing a date are ordered newest createdAt first.
func (s *IngestionService) ListRecords(ctx context.Context, ownerID string) ([]domain.FinancialRecord, error) {
	ctx, span := ingestTracer.Start(ctx, "IngestionService.ListRecords")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	records, err := s.store.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		s.recordStoreError("list", err)
		span.RecordError(err)
		return nil, err
	}

	// ListByOwner is already createdAt-desc, so a stable sort on date keeps
	// that as the tie-break.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records, nil
}

// ============================================================
// Internal helpers
// ============================================================

// prepare runs CPU-bound parse and normalize work inside a bulkhead slot.
func (s *IngestionService) prepare(ctx context.Context, fn func() ([]domain.FinancialRecord, error)) ([]domain.FinancialRecord, error) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()
	return fn()
}

func (s *IngestionService) persist(ctx context.Context, records []domain.FinancialRecord, source domain.SourceType) (int, error) {
	n, err := s.store.Append(ctx, records)
	if err != nil {
		s.recordStoreError("append", err)
		return 0, err
	}
	s.metrics.AddRecordsIngested(source, n)
	return n, nil
}

func (s *IngestionService) recordStoreError(op string, err error) {
	var persistence *domain.ErrPersistence
	var open *domain.ErrCircuitOpen
	if errors.As(err, &persistence) || errors.As(err, &open) {
		s.metrics.IncrStoreError(op)
	}
}

func (s *IngestionService) fail(span trace.Span, ownerID string, err error) error {
	kind := failureKind(err)
	if kind != "" {
		s.metrics.IncrIngestFailure(kind)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)

	s.logger.Warn("ingestion rejected",
		zap.String("owner_id", ownerID),
		zap.String("kind", kind),
		zap.Error(err),
	)
	return err
}

// failureKind classifies an ingestion error for the failure counter.
// Errors outside the ingestion taxonomy return "".
func failureKind(err error) string {
	var (
		unsupported *domain.ErrUnsupportedFormat
		malformed   *domain.ErrMalformedInput
		invalid     *domain.ErrInvalidRecord
		persistence *domain.ErrPersistence
		open        *domain.ErrCircuitOpen
	)
	switch {
	case errors.As(err, &unsupported):
		return observability.FailureUnsupported
	case errors.As(err, &malformed):
		return observability.FailureMalformed
	case errors.As(err, &invalid):
		return observability.FailureInvalid
	case errors.As(err, &persistence), errors.As(err, &open):
		return observability.FailurePersistence
	default:
		return ""
	}
}
