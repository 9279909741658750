package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	OTPExpiry    = 10 * time.Minute
	OTPCooldown  = 5 * time.Minute
	// how long expired records linger before PurgeStale removes them
	OTPRetention = 24 * time.Hour

	otpMin = 100000
	otpMax = 999999
)

// OTPService issues and verifies one-time passcodes, one record per email
type OTPService struct {
	repo    *repository.OTPRepository
	logger  *zap.Logger
	now     func() time.Time
	newCode func() (string, error)
}

// OTPOption customizes an OTPService
type OTPOption func(*OTPService)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) OTPOption {
	return func(s *OTPService) { s.now = now }
}

// WithCodeGenerator replaces the random code source
func WithCodeGenerator(gen func() (string, error)) OTPOption {
	return func(s *OTPService) { s.newCode = gen }
}

func NewOTPService(repo *repository.OTPRepository, logger *zap.Logger, opts ...OTPOption) *OTPService {
	s := &OTPService{
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		newCode: generateOTPCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates or refreshes the OTP for email. Inside the cooldown it
// returns *RateLimitError and leaves the stored record untouched.
func (s *OTPService) Issue(ctx context.Context, email string) (*model.OTPRecord, error) {
	email = model.NormalizeEmail(email)
	now := s.clock()

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	rec := &model.OTPRecord{
		Email:           email,
		Code:            code,
		ExpiresAt:       now.Add(OTPExpiry),
		LastGeneratedAt: now,
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.repo.Create(ctx, rec)
		if err == nil {
			s.logger.Info("otp issued", zap.String("email", email))
			return rec, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to save OTP: %w", err)
		}
		// lost a race with a concurrent first issuance
		return nil, s.rateLimited(ctx, email, now)
	case err != nil:
		return nil, fmt.Errorf("failed to load OTP: %w", err)
	}

	if now.Before(existing.CooldownEnd(OTPCooldown)) {
		return nil, cooldownError(existing, now)
	}

	ok, err := s.repo.Refresh(ctx, rec, now.Add(-OTPCooldown))
	if err != nil {
		return nil, fmt.Errorf("failed to save OTP: %w", err)
	}
	if !ok {
		return nil, s.rateLimited(ctx, email, now)
	}

	s.logger.Info("otp refreshed", zap.String("email", email))
	return rec, nil
}

// Verify checks code against the stored OTP and consumes it on success.
// Failed attempts leave the record in place so the user can retry.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	email = model.NormalizeEmail(email)

	rec, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load OTP: %w", err)
	}

	if rec.IsExpiredAt(s.clock()) {
		return ErrOTPExpired
	}
	if rec.Code != code {
		return ErrOTPMismatch
	}

	consumed, err := s.repo.Consume(ctx, email, code)
	if err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}
	if !consumed {
		// another request used or replaced the code in the meantime
		return ErrOTPNotFound
	}

	s.logger.Info("otp verified", zap.String("email", email))
	return nil
}

// PurgeStale deletes records that expired more than OTPRetention ago.
// Newer expired records are kept so Verify can still report ErrOTPExpired.
func (s *OTPService) PurgeStale(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredBefore(ctx, s.clock().Add(-OTPRetention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge OTP records: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged stale otp records", zap.Int64("count", n))
	}
	return n, nil
}

// rateLimited reloads the record written by a concurrent request and
// reports the cooldown it imposes
func (s *OTPService) rateLimited(ctx context.Context, email string, now time.Time) error {
	current, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load OTP: %w", err)
	}
	if !now.Before(current.CooldownEnd(OTPCooldown)) {
		// the competing write is already outside the window; report the minimum wait
		return &RateLimitError{MinutesLeft: 1}
	}
	return cooldownError(current, now)
}

func (s *OTPService) clock() time.Time {
	// millisecond precision survives every store round-trip
	return s.now().UTC().Truncate(time.Millisecond)
}

func cooldownError(rec *model.OTPRecord, now time.Time) *RateLimitError {
	left := rec.CooldownEnd(OTPCooldown).Sub(now)
	minutes := int((left + time.Minute - 1) / time.Minute)
	return &RateLimitError{MinutesLeft: minutes}
}

// generateOTPCode returns a uniformly random 6-digit code
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}
