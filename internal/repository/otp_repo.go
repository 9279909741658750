package repository

import (
	"context"
	"time"

	"github.com/quocanhngo/gatelog/internal/model"
	"gorm.io/gorm"
)

// OTPRepository handles database operations for OTP records
type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// FindByEmail returns the current OTP record for an email
func (r *OTPRepository) FindByEmail(ctx context.Context, email string) (*model.OTPRecord, error) {
	var rec model.OTPRecord
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts the first OTP record for an email.
// A concurrent insert for the same email fails with gorm.ErrDuplicatedKey.
func (r *OTPRepository) Create(ctx context.Context, rec *model.OTPRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Refresh overwrites the code and timestamps of an existing record, but only
// if its last issuance is at or before cutoff. It reports whether a row was
// updated; false means another request refreshed the record first.
func (r *OTPRepository) Refresh(ctx context.Context, rec *model.OTPRecord, cutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.OTPRecord{}).
		Where("email = ? AND last_generated_at <= ?", rec.Email, cutoff).
		Updates(map[string]interface{}{
			"code":              rec.Code,
			"expires_at":        rec.ExpiresAt,
			"last_generated_at": rec.LastGeneratedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Consume deletes the record if it still holds code.
// It reports whether the record was deleted by this call.
func (r *OTPRepository) Consume(ctx context.Context, email, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("email = ? AND code = ?", email, code).
		Delete(&model.OTPRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteExpiredBefore removes records that expired before t
func (r *OTPRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", t).Delete(&model.OTPRecord{})
	return res.RowsAffected, res.Error
}
