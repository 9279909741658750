package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/pkg/mailer"
	"github.com/quocanhngo/gatelog/pkg/storage"
	"github.com/stretchr/testify/mock"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOTP(ctx context.Context, toEmail, code string, expiryMinutes int) error {
	args := m.Called(ctx, toEmail, code, expiryMinutes)
	return args.Error(0)
}

func (m *MockMailer) SendContact(ctx context.Context, recipient string, form mailer.ContactForm) error {
	args := m.Called(ctx, recipient, form)
	return args.Error(0)
}

type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, imageURL string) (string, error) {
	args := m.Called(ctx, imageURL)
	return args.String(0), args.Error(1)
}

// MemoryStorage keeps objects in a map and hands out fake signed URLs
type MemoryStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErr  error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: make(map[string][]byte)}
}

func (s *MemoryStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	if s.PutErr != nil {
		return nil, s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.Objects[key] = data
	s.mu.Unlock()
	return &storage.UploadResult{Key: key, FileSize: int64(len(data)), MimeType: contentType}, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.Objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

// Has reports whether an object is stored under key
func (s *MemoryStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

// RecordingPublisher collects published events
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []*model.WSEvent
}

func (p *RecordingPublisher) Publish(ctx context.Context, event *model.WSEvent) {
	p.mu.Lock()
	p.Events = append(p.Events, event)
	p.mu.Unlock()
}

// Types returns the event types in publish order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.Type)
	}
	return types
}

// MemoryBlacklist is an in-process token blacklist
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{revoked: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	b.revoked[token] = time.Now().Add(ttl)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.revoked[token]
	return ok && time.Now().Before(until), nil
}
