package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"github.com/quocanhngo/gatelog/pkg/auth"
	"github.com/quocanhngo/gatelog/pkg/mailer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mailer delivers the emails this service sends
type Mailer interface {
	SendOTP(ctx context.Context, toEmail, code string, expiryMinutes int) error
	SendContact(ctx context.Context, recipient string, form mailer.ContactForm) error
}

// AuthService handles passwordless login
type AuthService struct {
	userRepo   *repository.UserRepository
	otp        *OTPService
	jwtManager *auth.JWTManager
	mailer     Mailer
	blacklist  auth.Blacklist
	logger     *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	otp *OTPService,
	jwtManager *auth.JWTManager,
	mailer Mailer,
	blacklist auth.Blacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		otp:        otp,
		jwtManager: jwtManager,
		mailer:     mailer,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// RequestOTP issues a login code for a registered email and mails it.
// The code itself is never returned to the caller.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	rec, err := s.otp.Issue(ctx, email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(ctx, email, rec.Code, int(OTPExpiry/time.Minute)); err != nil {
		s.logger.Error("failed to send otp email", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}

// VerifyOTP consumes a login code and returns a signed session token
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (string, *model.User, error) {
	email = model.NormalizeEmail(email)

	if err := s.otp.Verify(ctx, email, code); err != nil {
		return "", nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrUserNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.FullName, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user signed in", zap.String("email", email), zap.String("role", string(user.Role)))
	return token, user, nil
}

// Logout revokes a token until its natural expiry
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		// nothing to revoke
		return nil
	}
	return s.blacklist.Revoke(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

// GetProfile returns the current user
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// CreateUser registers an account directly, bypassing access requests
func (s *AuthService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	req.Email = model.NormalizeEmail(req.Email)
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	user := &model.User{FullName: req.Name, Email: req.Email, Role: req.Role}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
