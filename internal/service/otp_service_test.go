package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"github.com/quocanhngo/gatelog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func fixedCode(code string) func() (string, error) {
	return func() (string, error) { return code, nil }
}

func newTestOTPService(t *testing.T, clock *fakeClock, opts ...OTPOption) (*OTPService, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	opts = append([]OTPOption{WithClock(clock.Now)}, opts...)
	return NewOTPService(repository.NewOTPRepository(db), zap.NewNop(), opts...), db
}

func loadOTP(t *testing.T, db *gorm.DB, email string) *model.OTPRecord {
	t.Helper()
	var rec model.OTPRecord
	require.NoError(t, db.Where("email = ?", email).First(&rec).Error)
	return &rec
}

func TestOTPService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a record for a new email", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock)

		rec, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		assert.Len(t, rec.Code, 6)
		assert.True(t, rec.ExpiresAt.Equal(rec.LastGeneratedAt.Add(10*time.Minute)))
		assert.True(t, rec.LastGeneratedAt.Equal(clock.Now()))

		stored := loadOTP(t, db, "driver@example.com")
		assert.Equal(t, rec.Code, stored.Code)
		assert.True(t, stored.ExpiresAt.Equal(stored.LastGeneratedAt.Add(OTPExpiry)))
	})

	t.Run("normalizes the email key", func(t *testing.T) {
		svc, db := newTestOTPService(t, newFakeClock())

		_, err := svc.Issue(ctx, "  Driver@Example.COM ")
		require.NoError(t, err)

		var count int64
		db.Model(&model.OTPRecord{}).Where("email = ?", "driver@example.com").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rate limits inside the cooldown and keeps the record", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock, WithCodeGenerator(fixedCode("123456")))

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)
		before := loadOTP(t, db, "driver@example.com")

		svc.newCode = fixedCode("654321")
		clock.Advance(2 * time.Minute)
		_, err = svc.Issue(ctx, "driver@example.com")

		var rle *RateLimitError
		require.True(t, errors.As(err, &rle))
		assert.Equal(t, 3, rle.MinutesLeft)
		assert.Equal(t, "Please wait 3 minute(s) before requesting a new OTP", err.Error())

		after := loadOTP(t, db, "driver@example.com")
		assert.Equal(t, "123456", after.Code)
		assert.True(t, after.ExpiresAt.Equal(before.ExpiresAt))
		assert.True(t, after.LastGeneratedAt.Equal(before.LastGeneratedAt))
	})

	t.Run("rounds the remaining cooldown up to whole minutes", func(t *testing.T) {
		clock := newFakeClock()
		svc, _ := newTestOTPService(t, clock)

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		cases := map[time.Duration]int{
			1 * time.Second:                5,
			4*time.Minute + 59*time.Second: 1,
			2*time.Minute + 30*time.Second: 3,
		}
		start := clock.Now()
		for offset, want := range cases {
			clock.t = start.Add(offset)
			_, err := svc.Issue(ctx, "driver@example.com")
			var rle *RateLimitError
			require.True(t, errors.As(err, &rle), offset.String())
			assert.Equal(t, want, rle.MinutesLeft, offset.String())
		}
	})

	t.Run("refreshes after the cooldown", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock, WithCodeGenerator(fixedCode("111111")))

		first, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		svc.newCode = fixedCode("222222")
		clock.Advance(OTPCooldown)
		second, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		assert.True(t, second.LastGeneratedAt.After(first.LastGeneratedAt))
		assert.True(t, second.ExpiresAt.After(first.ExpiresAt))

		stored := loadOTP(t, db, "driver@example.com")
		assert.Equal(t, "222222", stored.Code)
		assert.True(t, stored.LastGeneratedAt.Equal(clock.Now()))
		assert.True(t, stored.ExpiresAt.Equal(clock.Now().Add(OTPExpiry)))
	})

	t.Run("conditional refresh refuses a record written inside the window", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock)
		repo := repository.NewOTPRepository(db)

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		// simulates a second request that read the record before the first refresh landed
		clock.Advance(6 * time.Minute)
		ok, err := repo.Refresh(ctx, &model.OTPRecord{
			Email:           "driver@example.com",
			Code:            "999999",
			LastGeneratedAt: clock.Now(),
			ExpiresAt:       clock.Now().Add(OTPExpiry),
		}, clock.Now().Add(-OTPCooldown))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.Refresh(ctx, &model.OTPRecord{
			Email:           "driver@example.com",
			Code:            "888888",
			LastGeneratedAt: clock.Now(),
			ExpiresAt:       clock.Now().Add(OTPExpiry),
		}, clock.Now().Add(-OTPCooldown))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "999999", loadOTP(t, db, "driver@example.com").Code)
	})
}

func TestOTPService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds once then reports not found", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock, WithCodeGenerator(fixedCode("123456")))

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		clock.Advance(time.Minute)
		require.NoError(t, svc.Verify(ctx, "driver@example.com", "123456"))

		var count int64
		db.Model(&model.OTPRecord{}).Count(&count)
		assert.Zero(t, count)

		assert.ErrorIs(t, svc.Verify(ctx, "driver@example.com", "123456"), ErrOTPNotFound)
	})

	t.Run("mismatch keeps the record for a retry", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock, WithCodeGenerator(fixedCode("123456")))

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Verify(ctx, "driver@example.com", "000000"), ErrOTPMismatch)
		assert.ErrorIs(t, svc.Verify(ctx, "driver@example.com", "12345"), ErrOTPMismatch)
		assert.Equal(t, "123456", loadOTP(t, db, "driver@example.com").Code)

		assert.NoError(t, svc.Verify(ctx, "driver@example.com", "123456"))
	})

	t.Run("expired code is rejected even when correct", func(t *testing.T) {
		clock := newFakeClock()
		svc, db := newTestOTPService(t, clock, WithCodeGenerator(fixedCode("123456")))

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		clock.Advance(11 * time.Minute)
		assert.ErrorIs(t, svc.Verify(ctx, "driver@example.com", "123456"), ErrOTPExpired)
		assert.Equal(t, "123456", loadOTP(t, db, "driver@example.com").Code)
	})

	t.Run("code is accepted exactly at expiry", func(t *testing.T) {
		clock := newFakeClock()
		svc, _ := newTestOTPService(t, clock, WithCodeGenerator(fixedCode("123456")))

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)

		clock.Advance(OTPExpiry)
		assert.NoError(t, svc.Verify(ctx, "driver@example.com", "123456"))
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, _ := newTestOTPService(t, newFakeClock())
		err := svc.Verify(ctx, "nobody@example.com", "123456")
		assert.ErrorIs(t, err, ErrOTPNotFound)
		assert.Equal(t, "no OTP found for this email", err.Error())
	})

	t.Run("lookup uses the normalized email", func(t *testing.T) {
		svc, _ := newTestOTPService(t, newFakeClock(), WithCodeGenerator(fixedCode("123456")))

		_, err := svc.Issue(ctx, "driver@example.com")
		require.NoError(t, err)
		assert.NoError(t, svc.Verify(ctx, " DRIVER@example.com", "123456"))
	})
}

func TestGenerateOTPCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestOTPService_PurgeStale(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestOTPService(t, clock)

	_, err := svc.Issue(ctx, "old@example.com")
	require.NoError(t, err)
	clock.Advance(OTPExpiry + OTPRetention + time.Minute)
	_, err = svc.Issue(ctx, "fresh@example.com")
	require.NoError(t, err)

	n, err := svc.PurgeStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	require.NoError(t, db.Model(&model.OTPRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	loadOTP(t, db, "fresh@example.com")
}
