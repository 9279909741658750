package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/pkg/mailer"
	"go.uber.org/zap"
)

// ContactService forwards public contact form messages by email
type ContactService struct {
	mailer    Mailer
	recipient string
	logger    *zap.Logger
}

func NewContactService(m Mailer, recipient string, logger *zap.Logger) *ContactService {
	return &ContactService{mailer: m, recipient: recipient, logger: logger}
}

func (s *ContactService) Submit(ctx context.Context, req model.ContactRequest) error {
	if s.recipient == "" || s.mailer == nil {
		return ErrContactNotEnabled
	}

	form := mailer.ContactForm{
		Name:    strings.TrimSpace(req.Name),
		Email:   model.NormalizeEmail(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: strings.TrimSpace(req.Message),
	}
	if err := s.mailer.SendContact(ctx, s.recipient, form); err != nil {
		s.logger.Error("failed to send contact email", zap.String("from", form.Email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}
