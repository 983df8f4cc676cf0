package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/sqlite"

	"go.uber.org/zap"
)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "insightedge.db")
	s, err := sqlite.Open(path, 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func record(owner, product string, q, p float64) domain.FinancialRecord {
	return domain.FinancialRecord{
		OwnerID:     owner,
		Date:        time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
		Product:     product,
		Quantity:    q,
		Price:       p,
		Total:       q * p,
		Category:    "Hardware",
		SourceType:  domain.SourceCSV,
		SourceLabel: "sales.csv",
	}
}

func TestAppend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	n, err := s.Append(ctx, []domain.FinancialRecord{record("alice", "Widget", 3, 10), record("alice", "Gadget", 1, 2.5)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 appended, got %d", n)
	}

	got, err := s.FindByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}

	var widget domain.FinancialRecord
	for _, r := range got {
		if r.Product == "Widget" {
			widget = r
		}
	}
	if widget.Total != 30 || widget.Category != "Hardware" || widget.SourceType != domain.SourceCSV || widget.SourceLabel != "sales.csv" {
		t.Errorf("unexpected stored record: %+v", widget)
	}
	if !widget.Date.Equal(time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected date preserved, got %s", widget.Date)
	}
	if widget.ID == "" || widget.CreatedAt.IsZero() {
		t.Error("expected id and createdAt")
	}
}

func TestAppend_RollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	if _, err := s.Append(ctx, []domain.FinancialRecord{record("alice", "A", 1, 1)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// The third row violates the schema's non-negative check after two good inserts.
	_, err := s.Append(ctx, []domain.FinancialRecord{
		record("alice", "B", 1, 1),
		record("alice", "C", 2, 2),
		record("alice", "D", -1, 5),
	})

	var persistence *domain.ErrPersistence
	if !errors.As(err, &persistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	got, _ := s.FindByOwner(ctx, "alice")
	if len(got) != 1 {
		t.Errorf("expected only the first batch committed, got %d records", len(got))
	}
}

func TestReads_RequireOwner(t *testing.T) {
	s, _ := openStore(t)

	_, err := s.FindByOwner(context.Background(), "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListByOwner_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	for _, p := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		if _, err := s.Append(ctx, []domain.FinancialRecord{record("alice", p, 1, 1)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_, _ = s.Append(ctx, []domain.FinancialRecord{record("bob", "other", 1, 1)})

	recent, err := s.ListByOwner(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected 5, got %d", len(recent))
	}
	if recent[0].Product != "p6" || recent[4].Product != "p2" {
		t.Errorf("expected p6..p2, got %s..%s", recent[0].Product, recent[4].Product)
	}

	all, _ := s.ListByOwner(ctx, "alice", 0)
	if len(all) != 6 {
		t.Errorf("expected 6, got %d", len(all))
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)
	_, _ = s.Append(ctx, []domain.FinancialRecord{record("alice", "A", 1, 1)})
	s.Close()

	again, err := sqlite.Open(path, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	got, _ := again.FindByOwner(ctx, "alice")
	if len(got) != 1 {
		t.Errorf("expected record to survive reopen, got %d", len(got))
	}
	if err := again.Ping(ctx); err != nil {
		t.Errorf("expected ping ok, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	created, err := s.CreateUser(ctx, &domain.User{
		Username: "alice", Email: "alice@example.com", Name: "Alice",
		Role: domain.RoleUser, PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	byName, err := s.GetUserByUsername(ctx, "ALICE")
	if err != nil || byName == nil || byName.ID != created.ID {
		t.Fatalf("expected case-insensitive lookup, got %+v, %v", byName, err)
	}
	if byName.PasswordHash != "hash" {
		t.Errorf("expected password hash stored, got %q", byName.PasswordHash)
	}

	byEmail, _ := s.GetUserByEmail(ctx, "Alice@Example.com")
	if byEmail == nil {
		t.Error("expected email lookup to find user")
	}

	missing, err := s.GetUserByID(ctx, "nope")
	if missing != nil || err != nil {
		t.Errorf("expected nil, nil; got %+v, %v", missing, err)
	}

	_, err = s.CreateUser(ctx, &domain.User{Username: "Alice", Email: "x@example.com", PasswordHash: "h"})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestContactMessages(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	if _, err := s.SaveContactMessage(ctx, &domain.ContactMessage{Name: "Ann", Email: "ann@example.com", Message: "first"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	saved, err := s.SaveContactMessage(ctx, &domain.ContactMessage{Name: "Bo", Email: "bo@example.com", Subject: "Hi", Message: "second", UserID: "u1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := s.ListContactMessages(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != saved.ID || got[0].UserID != "u1" || got[1].Message != "first" {
		t.Errorf("expected newest first with user id, got %+v", got)
	}
}
