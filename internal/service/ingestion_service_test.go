package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/memory"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"
	"github.com/boddenberg/insightedge-bfa-go/internal/service"

	"go.uber.org/zap"
)

func newIngestion(store port.RecordStore) (*service.IngestionService, *observability.Metrics) {
	metrics := observability.NewMetrics()
	return service.NewIngestionService(store, resilience.NewBulkhead(2), metrics, zap.NewNop()), metrics
}

func TestUploadFile_CSV(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, metrics := newIngestion(store)

	csv := "date,product,quantity,price,total\n2024-01-15,Widget,3,10.00,999\n"
	result, err := svc.UploadFile(ctx, "alice", "sales.CSV", []byte(csv))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Count != 1 || result.FileType != "csv" || result.Filename != "sales.CSV" || result.OwnerID != "alice" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Message != "Data uploaded successfully" {
		t.Errorf("unexpected message %q", result.Message)
	}

	records, err := svc.ListRecords(ctx, "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Total != 30 {
		t.Errorf("expected total 30 ignoring supplied total, got %v", r.Total)
	}
	if r.Category != domain.DefaultCategory || r.SourceType != domain.SourceCSV || r.SourceLabel != "sales.CSV" {
		t.Errorf("unexpected provenance: %+v", r)
	}

	if got := metrics.IngestionSnapshot().RecordsIngested["csv"]; got != 1 {
		t.Errorf("expected 1 csv record counted, got %d", got)
	}
}

func TestUploadFile_InvalidRowCommitsNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, metrics := newIngestion(store)

	csv := "date,product,quantity\n2024-01-15,Widget,3\n2024-01-16,Gadget,1\n"
	_, err := svc.UploadFile(ctx, "alice", "sales.csv", []byte(csv))

	var invalid *domain.ErrInvalidRecord
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if invalid.Field != "price" {
		t.Errorf("expected price to be reported, got %q", invalid.Field)
	}

	records, _ := store.FindByOwner(ctx, "alice")
	if len(records) != 0 {
		t.Errorf("expected zero records committed, got %d", len(records))
	}
	if got := metrics.IngestionSnapshot().IngestFailures[observability.FailureInvalid]; got != 1 {
		t.Errorf("expected 1 invalid_record failure, got %d", got)
	}
}

func TestUploadFile_OverflowingTotalKeepsDashboardReadable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newIngestion(store)

	csv := "date,product,quantity,price\n2024-01-15,Widget,1e200,1e200\n"
	_, err := svc.UploadFile(ctx, "alice", "big.csv", []byte(csv))

	var invalid *domain.ErrInvalidRecord
	if !errors.As(err, &invalid) || invalid.Field != "total" {
		t.Fatalf("expected ErrInvalidRecord on total, got %v", err)
	}

	dashboard := service.NewDashboardService(store, observability.NewMetrics(), zap.NewNop())
	summary, err := dashboard.Summarize(ctx, "alice", 2024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.TotalSales != 0 {
		t.Errorf("expected nothing stored, got %d sales", summary.TotalSales)
	}
}

func TestUploadFile_UnsupportedExtension(t *testing.T) {
	svc, metrics := newIngestion(memory.NewStore())

	_, err := svc.UploadFile(context.Background(), "alice", "notes.txt", []byte("hello"))

	var unsupported *domain.ErrUnsupportedFormat
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if got := metrics.IngestionSnapshot().IngestFailures[observability.FailureUnsupported]; got != 1 {
		t.Errorf("expected 1 unsupported failure, got %d", got)
	}
}

func TestUploadFile_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newIngestion(store)
	dashboard := service.NewDashboardService(store, observability.NewMetrics(), zap.NewNop())

	before, err := dashboard.Summarize(ctx, "alice", 2024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	payload := `[
		{"date": "2024-02-01", "product": "A", "quantity": 2, "price": 5},
		{"Date": "2024-03-01", "Product": "B", "Quantity": "1", "Price": "7.5", "Category": "Tools"}
	]`
	result, err := svc.UploadFile(ctx, "alice", "export.json", []byte(payload))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Count != 2 || result.FileType != "json" {
		t.Errorf("unexpected result: %+v", result)
	}

	after, err := dashboard.Summarize(ctx, "alice", 2024)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if after.TotalSales-before.TotalSales != 2 {
		t.Errorf("expected sales to grow by 2, got %d -> %d", before.TotalSales, after.TotalSales)
	}
	if after.TotalRevenue-before.TotalRevenue != 17.5 {
		t.Errorf("expected revenue to grow by 17.5, got %v -> %v", before.TotalRevenue, after.TotalRevenue)
	}

	records, _ := store.FindByOwner(ctx, "alice")
	for _, r := range records {
		if r.SourceType != domain.SourceJSON {
			t.Errorf("expected json source type, got %q", r.SourceType)
		}
	}
}

func TestUploadFile_MalformedJSON(t *testing.T) {
	svc, metrics := newIngestion(memory.NewStore())

	_, err := svc.UploadFile(context.Background(), "alice", "broken.json", []byte(`{"not": "an array"`))

	var malformed *domain.ErrMalformedInput
	if !errors.As(err, &malformed) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
	if got := metrics.IngestionSnapshot().IngestFailures[observability.FailureMalformed]; got != 1 {
		t.Errorf("expected 1 malformed failure, got %d", got)
	}
}

func TestUploadFile_StoreFailure(t *testing.T) {
	svc, metrics := newIngestion(&failingRecordStore{err: errStoreDown})

	_, err := svc.UploadFile(context.Background(), "alice", "sales.csv", []byte("date,product,quantity,price\n2024-01-15,Widget,3,10\n"))

	var persistence *domain.ErrPersistence
	if !errors.As(err, &persistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	snap := metrics.IngestionSnapshot()
	if snap.StoreErrors != 1 {
		t.Errorf("expected 1 store error, got %d", snap.StoreErrors)
	}
	if snap.IngestFailures[observability.FailurePersistence] != 1 {
		t.Errorf("expected 1 persistence failure, got %d", snap.IngestFailures[observability.FailurePersistence])
	}
}

func TestUploadFile_WaitsForIngestSlot(t *testing.T) {
	store := memory.NewStore()
	bulkhead := resilience.NewBulkhead(1)
	svc := service.NewIngestionService(store, bulkhead, observability.NewMetrics(), zap.NewNop())

	if err := bulkhead.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer bulkhead.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.UploadFile(ctx, "alice", "sales.csv", []byte("date,product,quantity,price\n2024-01-15,Widget,3,10\n"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while waiting for a slot, got %v", err)
	}

	records, _ := store.FindByOwner(context.Background(), "alice")
	if len(records) != 0 {
		t.Errorf("expected nothing committed, got %d", len(records))
	}
}

func TestSaveManual_KeepsSuppliedTotal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc, _ := newIngestion(store)

	result, err := svc.SaveManual(ctx, "alice", []domain.RawRow{
		{"date": "2024-05-01", "product": "Consulting", "quantity": 3.0, "price": 33.333, "total": 100.0},
		{"date": "2024-05-02", "product": "Support", "quantity": 2.0, "price": 5.0},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Count != 2 || result.Message != "Data saved successfully" {
		t.Errorf("unexpected result: %+v", result)
	}

	records, _ := svc.ListRecords(ctx, "alice")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Date descending: Support (May 2) first.
	if records[0].Product != "Support" || records[0].Total != 10 {
		t.Errorf("expected computed total 10 for Support, got %+v", records[0])
	}
	if records[1].Total != 100 {
		t.Errorf("expected supplied total kept verbatim, got %v", records[1].Total)
	}
	for _, r := range records {
		if r.SourceType != domain.SourceManual || r.SourceLabel != domain.ManualEntryLabel {
			t.Errorf("unexpected provenance: %s / %s", r.SourceType, r.SourceLabel)
		}
	}
}

func TestSaveManual_EmptyBatch(t *testing.T) {
	svc, _ := newIngestion(memory.NewStore())

	_, err := svc.SaveManual(context.Background(), "alice", nil)

	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if validation.Message != "Invalid data format" {
		t.Errorf("unexpected message %q", validation.Message)
	}
}

func TestListRecords_SameDateNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newIngestion(memory.NewStore())

	for _, p := range []string{"first", "second"} {
		if _, err := svc.SaveManual(ctx, "alice", []domain.RawRow{
			{"date": "2024-01-01", "product": p, "quantity": 1.0, "price": 1.0},
		}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if _, err := svc.SaveManual(ctx, "alice", []domain.RawRow{
		{"date": "2023-06-01", "product": "older", "quantity": 1.0, "price": 1.0},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	records, err := svc.ListRecords(ctx, "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := []string{records[0].Product, records[1].Product, records[2].Product}
	want := []string{"second", "first", "older"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
