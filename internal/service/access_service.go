package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccessService reviews self-service account requests
type AccessService struct {
	requests *repository.AccessRequestRepository
	users    *repository.UserRepository
	logger   *zap.Logger
}

func NewAccessService(requests *repository.AccessRequestRepository, users *repository.UserRepository, logger *zap.Logger) *AccessService {
	return &AccessService{requests: requests, users: users, logger: logger}
}

// Submit files a new access request
func (s *AccessService) Submit(ctx context.Context, req model.CreateAccessRequest) (*model.AccessRequest, error) {
	fullName := strings.TrimSpace(req.FullName)
	purpose := strings.TrimSpace(req.Purpose)
	email := model.NormalizeEmail(req.Email)
	if fullName == "" || purpose == "" || email == "" {
		return nil, ErrMissingFields
	}
	if utf8.RuneCountInString(purpose) > model.MaxPurposeLength {
		return nil, ErrPurposeTooLong
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	_, err = s.requests.FindPendingByEmail(ctx, email)
	if err == nil {
		return nil, ErrRequestPending
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find access request: %w", err)
	}

	ar := &model.AccessRequest{FullName: fullName, Email: email, Purpose: purpose}
	if err := s.requests.Create(ctx, ar); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent submission
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}

	s.logger.Info("access request submitted", zap.String("email", email))
	return ar, nil
}

// List returns every access request, newest first
func (s *AccessService) List(ctx context.Context) ([]model.AccessRequest, error) {
	return s.requests.List(ctx)
}

// Approve creates an account for a pending request. An empty role means VIEWER.
func (s *AccessService) Approve(ctx context.Context, id uuid.UUID, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleViewer
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	ar, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}

	user := &model.User{FullName: ar.FullName, Email: ar.Email, Role: role}
	if err := s.requests.Approve(ctx, ar, user); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrUserExists
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrRequestProcessed
		}
		return nil, fmt.Errorf("failed to approve access request: %w", err)
	}

	s.logger.Info("access request approved", zap.String("email", ar.Email), zap.String("role", string(role)))
	return user, nil
}

// Reject closes a pending request without creating an account
func (s *AccessService) Reject(ctx context.Context, id uuid.UUID) error {
	ar, err := s.pending(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requests.Reject(ctx, ar); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestProcessed
		}
		return fmt.Errorf("failed to reject access request: %w", err)
	}
	s.logger.Info("access request rejected", zap.String("email", ar.Email))
	return nil
}

func (s *AccessService) pending(ctx context.Context, id uuid.UUID) (*model.AccessRequest, error) {
	ar, err := s.requests.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find access request: %w", err)
	}
	if !ar.IsPending() {
		return nil, ErrRequestProcessed
	}
	return ar, nil
}
