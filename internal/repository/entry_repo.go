package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/model"
	"gorm.io/gorm"
)

// EntryRepository handles database operations for vehicle entries
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts a new entry
func (r *EntryRepository) Create(ctx context.Context, entry *model.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByID finds an entry by UUID
func (r *EntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Entry, error) {
	var entry model.Entry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns entries newest first within the optional time range,
// together with the total number of matching entries
func (r *EntryRepository) List(ctx context.Context, filter model.EntryFilter) ([]model.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Entry{})
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.Entry
	err := query.
		Order("timestamp DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// UpdateNumber sets the plate number of an entry and returns the updated row
func (r *EntryRepository) UpdateNumber(ctx context.Context, id uuid.UUID, number string) (*model.Entry, error) {
	res := r.db.WithContext(ctx).Model(&model.Entry{}).
		Where("id = ?", id).
		Update("number", number)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes an entry
func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Entry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
