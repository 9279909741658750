package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/model"
	"gorm.io/gorm"
)

// AccessRequestRepository handles database operations for access requests
type AccessRequestRepository struct {
	db *gorm.DB
}

func NewAccessRequestRepository(db *gorm.DB) *AccessRequestRepository {
	return &AccessRequestRepository{db: db}
}

// Create inserts a new access request
func (r *AccessRequestRepository) Create(ctx context.Context, req *model.AccessRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// FindByID finds an access request by UUID
func (r *AccessRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AccessRequest, error) {
	var req model.AccessRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindPendingByEmail finds an unreviewed request for an email
func (r *AccessRequestRepository) FindPendingByEmail(ctx context.Context, email string) (*model.AccessRequest, error) {
	var req model.AccessRequest
	err := r.db.WithContext(ctx).
		Where("email = ? AND status = ?", model.NormalizeEmail(email), model.AccessRequestPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns all access requests, newest first
func (r *AccessRequestRepository) List(ctx context.Context) ([]model.AccessRequest, error) {
	var reqs []model.AccessRequest
	err := r.db.WithContext(ctx).Order("requested_at DESC").Find(&reqs).Error
	return reqs, err
}

// Approve creates the user and marks the request approved in one transaction
func (r *AccessRequestRepository) Approve(ctx context.Context, req *model.AccessRequest, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return r.setStatus(tx, req, model.AccessRequestApproved)
	})
}

// Reject marks a pending request rejected
func (r *AccessRequestRepository) Reject(ctx context.Context, req *model.AccessRequest) error {
	return r.setStatus(r.db.WithContext(ctx), req, model.AccessRequestRejected)
}

func (r *AccessRequestRepository) setStatus(db *gorm.DB, req *model.AccessRequest, status model.AccessRequestStatus) error {
	res := db.Model(&model.AccessRequest{}).
		Where("id = ? AND status = ?", req.ID, model.AccessRequestPending).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	req.Status = status
	return nil
}
