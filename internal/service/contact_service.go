package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var contactTracer = otel.Tracer("service/contact")

const msgContactSent = "Message sent successfully"

// ContactService stores contact-form messages and lists them for admins.
type ContactService struct {
	store  port.ContactStore
	logger *zap.Logger
}

// NewContactService creates a new contact service.
func NewContactService(store port.ContactStore, logger *zap.Logger) *ContactService {
	return &ContactService{store: store, logger: logger}
}

// ============================================================
// Submit (POST /v1/contact)
// ============================================================

// Submit validates and stores a message. userID is empty for anonymous
// senders.
func (s *ContactService) Submit(ctx context.Context, req *domain.ContactRequest, userID string) (*domain.SuccessResponse, error) {
	ctx, span := contactTracer.Start(ctx, "ContactService.Submit")
	defer span.End()

	msg := &domain.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
		UserID:  userID,
	}

	switch {
	case msg.Name == "":
		return nil, &domain.ErrValidation{Field: "name", Message: "Name is required"}
	case msg.Email == "":
		return nil, &domain.ErrValidation{Field: "email", Message: "Email is required"}
	case msg.Message == "":
		return nil, &domain.ErrValidation{Field: "message", Message: "Message is required"}
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email is invalid"}
	}

	saved, err := s.store.SaveContactMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("save contact message: %w", err)
	}

	s.logger.Info("contact message received",
		zap.String("message_id", saved.ID),
		zap.String("user_id", userID),
	)
	return &domain.SuccessResponse{ID: saved.ID, Message: msgContactSent}, nil
}

// ============================================================
// List (GET /v1/admin/contact)
// ============================================================

func (s *ContactService) List(ctx context.Context) ([]domain.ContactMessage, error) {
	ctx, span := contactTracer.Start(ctx, "ContactService.List")
	defer span.End()

	msgs, err := s.store.ListContactMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return msgs, nil
}
