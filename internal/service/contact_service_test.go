package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/memory"
	"github.com/boddenberg/insightedge-bfa-go/internal/service"

	"go.uber.org/zap"
)

func TestContactSubmit(t *testing.T) {
	ctx := context.Background()
	svc := service.NewContactService(memory.NewStore(), zap.NewNop())

	resp, err := svc.Submit(ctx, &domain.ContactRequest{
		Name: " Ann ", Email: "ann@example.com", Subject: "Pricing", Message: "How much?",
	}, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.ID == "" || resp.Message != "Message sent successfully" {
		t.Errorf("unexpected response: %+v", resp)
	}

	if _, err := svc.Submit(ctx, &domain.ContactRequest{Name: "Bo", Email: "bo@example.com", Message: "Hi"}, ""); err != nil {
		t.Fatalf("expected anonymous submit to work, got %v", err)
	}

	msgs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Name != "Bo" || msgs[0].UserID != "" {
		t.Errorf("expected anonymous message first, got %+v", msgs[0])
	}
	if msgs[1].Name != "Ann" || msgs[1].UserID != "user-1" {
		t.Errorf("expected trimmed name and user id, got %+v", msgs[1])
	}
}

func TestContactSubmit_Validation(t *testing.T) {
	svc := service.NewContactService(memory.NewStore(), zap.NewNop())

	tests := []struct {
		name  string
		req   domain.ContactRequest
		field string
	}{
		{"missing name", domain.ContactRequest{Email: "a@example.com", Message: "hi"}, "name"},
		{"missing email", domain.ContactRequest{Name: "A", Message: "hi"}, "email"},
		{"bad email", domain.ContactRequest{Name: "A", Email: "not-an-email", Message: "hi"}, "email"},
		{"blank message", domain.ContactRequest{Name: "A", Email: "a@example.com", Message: "   "}, "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Submit(context.Background(), &req, "")
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if validation.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, validation.Field)
			}
		})
	}
}
