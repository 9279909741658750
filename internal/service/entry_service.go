package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"github.com/quocanhngo/gatelog/pkg/storage"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entryKeyPrefix = "vehicle-entries/"

// Allowed MIME types for browser uploads
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/avif": true,
	"image/webp": true,
}

// Camera firmware sends loose MIME types (image/jpg, image/x-ms-bmp, octet-stream),
// so devices are checked by extension and by a substring of the MIME type
var (
	allowedDeviceExts  = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".bmp": true}
	allowedDeviceHints = []string{"jpeg", "jpg", "png", "bmp"}
)

// PlateRecognizer reads a number plate from an image URL
type PlateRecognizer interface {
	Recognize(ctx context.Context, imageURL string) (string, error)
}

// EventPublisher fans entry changes out to live viewers
type EventPublisher interface {
	Publish(ctx context.Context, event *model.WSEvent)
}

// ImageUpload is an uploaded image file
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// EntryService manages vehicle entries and their images
type EntryService struct {
	repo       *repository.EntryRepository
	storage    storage.Storage
	recognizer PlateRecognizer
	publisher  EventPublisher
	urlTTL     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewEntryService(
	repo *repository.EntryRepository,
	store storage.Storage,
	recognizer PlateRecognizer,
	publisher EventPublisher,
	urlTTL time.Duration,
	logger *zap.Logger,
) *EntryService {
	return &EntryService{
		repo:       repo,
		storage:    store,
		recognizer: recognizer,
		publisher:  publisher,
		urlTTL:     urlTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// IsAllowedImage checks a browser upload's MIME type
func IsAllowedImage(contentType string) bool {
	return allowedImageTypes[strings.ToLower(contentType)]
}

// IsAllowedDeviceImage checks a camera upload by extension and MIME type
func IsAllowedDeviceImage(filename, contentType string) bool {
	if !allowedDeviceExts[strings.ToLower(filepath.Ext(filename))] {
		return false
	}
	contentType = strings.ToLower(contentType)
	if contentType == "application/octet-stream" {
		return true
	}
	return lo.ContainsBy(allowedDeviceHints, func(hint string) bool {
		return strings.Contains(contentType, hint)
	})
}

// CreateFromUpload stores a browser-uploaded image and runs plate
// recognition on it. Recognition failures are stored as UNKNOWN.
func (s *EntryService) CreateFromUpload(ctx context.Context, img ImageUpload, createdBy uuid.UUID) (*model.EntryWithURL, error) {
	if !IsAllowedImage(img.ContentType) {
		return nil, ErrInvalidImage
	}

	now := s.now().UTC()
	key, err := s.store(ctx, img, img.ContentType, now)
	if err != nil {
		return nil, err
	}

	signedURL, err := s.storage.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		s.discard(key)
		return nil, fmt.Errorf("failed to sign image url: %w", err)
	}

	entry := &model.Entry{
		Timestamp: now,
		ImageKey:  key,
		Number:    s.recognize(ctx, signedURL),
		Source:    model.EntrySourceWeb,
		CreatedBy: &createdBy,
	}
	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}
	return &model.EntryWithURL{Entry: *entry, SignedURL: signedURL}, nil
}

// CreateFromDevice stores an image pushed by a gate camera that already
// read the plate itself. The plate is mandatory.
func (s *EntryService) CreateFromDevice(ctx context.Context, img ImageUpload, numberPlate string) (*model.Entry, error) {
	if !IsAllowedDeviceImage(img.Filename, img.ContentType) {
		return nil, ErrInvalidImage
	}

	numberPlate = strings.TrimSpace(numberPlate)
	if numberPlate == "" {
		return nil, ErrInvalidNumber
	}

	now := s.now().UTC()
	key, err := s.store(ctx, img, storage.DetectContentType(img.Filename), now)
	if err != nil {
		return nil, err
	}

	entry := &model.Entry{
		Timestamp: now,
		ImageKey:  key,
		Number:    numberPlate,
		Source:    model.EntrySourceDevice,
	}
	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns a page of entries, newest first, each with a signed image URL
func (s *EntryService) List(ctx context.Context, req model.EntryListRequest) (*model.EntryListResponse, error) {
	filter := model.EntryFilter{
		Offset: (req.Page - 1) * req.Limit,
		Limit:  req.Limit,
	}
	var err error
	if filter.From, err = parseTime(req.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseTime(req.To); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, ErrInvalidTimeRange
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	out := make([]model.EntryWithURL, 0, len(entries))
	for _, e := range entries {
		url, err := s.storage.PresignGet(ctx, e.ImageKey, s.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to sign image url: %w", err)
		}
		out = append(out, model.EntryWithURL{Entry: e, SignedURL: url})
	}

	return &model.EntryListResponse{
		Entries: out,
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
	}, nil
}

// UpdateNumber corrects the plate number of an entry
func (s *EntryService) UpdateNumber(ctx context.Context, id uuid.UUID, number string) (*model.Entry, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrInvalidNumber
	}

	entry, err := s.repo.UpdateNumber(ctx, id, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	s.publish(ctx, model.WSEventEntryUpdated, entry)
	return entry, nil
}

// Delete removes the entry image from storage, then the entry itself
func (s *EntryService) Delete(ctx context.Context, id uuid.UUID) error {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find entry: %w", err)
	}

	if err := s.storage.Delete(ctx, entry.ImageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	s.publish(ctx, model.WSEventEntryDeleted, model.EntryDeletedEvent{ID: id.String()})
	return nil
}

func (s *EntryService) store(ctx context.Context, img ImageUpload, contentType string, now time.Time) (string, error) {
	key := fmt.Sprintf("%s%d_%s", entryKeyPrefix, now.UnixMilli(), sanitizeFilename(img.Filename))
	if _, err := s.storage.Put(ctx, key, img.Reader, img.Size, contentType); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

func (s *EntryService) save(ctx context.Context, entry *model.Entry) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		s.discard(entry.ImageKey)
		return fmt.Errorf("failed to save entry: %w", err)
	}
	s.logger.Info("entry recorded",
		zap.String("id", entry.ID.String()),
		zap.String("number", entry.Number),
		zap.String("source", string(entry.Source)),
	)
	s.publish(ctx, model.WSEventEntryCreated, entry)
	return nil
}

func (s *EntryService) recognize(ctx context.Context, imageURL string) string {
	if s.recognizer == nil {
		return model.UnknownPlate
	}
	number, err := s.recognizer.Recognize(ctx, imageURL)
	if err != nil {
		s.logger.Warn("plate recognition failed", zap.Error(err))
		return model.UnknownPlate
	}
	return number
}

// discard removes an orphaned object; the request context may already be gone
func (s *EntryService) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned image", zap.String("key", key), zap.Error(err))
	}
}

func (s *EntryService) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, &model.WSEvent{Type: eventType, Payload: payload})
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeRange, v)
	}
	t = t.UTC()
	return &t, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}
