package verification

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesavefood/wesavefood/internal/logger"
)

const testPhone = "+998 90 123 45 67"

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl, logger.Mock())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestStore_SaveAndGet(t *testing.T) {
	s, clock := newTestStore(2 * time.Minute)

	s.Save(testPhone, "123456")

	entry, ok := s.Get(testPhone)
	require.True(t, ok)
	assert.Equal(t, "123456", entry.Code)
	assert.Zero(t, entry.Attempts)
	assert.Equal(t, clock.Add(2*time.Minute), entry.ExpiresAt)

	_, ok = s.Get("+998 99 999 99 99")
	assert.False(t, ok)
}

func TestStore_SaveOverwritesAndResetsAttempts(t *testing.T) {
	s, _ := newTestStore(2 * time.Minute)

	s.Save(testPhone, "111111")
	s.IncrementAttempts(testPhone)
	s.IncrementAttempts(testPhone)

	s.Save(testPhone, "222222")

	entry, ok := s.Get(testPhone)
	require.True(t, ok)
	assert.Equal(t, "222222", entry.Code)
	assert.Zero(t, entry.Attempts)
}

func TestStore_IncrementAttempts(t *testing.T) {
	s, _ := newTestStore(2 * time.Minute)

	// absent entry is a no-op, not a panic
	s.IncrementAttempts(testPhone)
	_, ok := s.Get(testPhone)
	assert.False(t, ok)

	s.Save(testPhone, "123456")
	for i := 1; i <= MaxAttempts; i++ {
		s.IncrementAttempts(testPhone)
		entry, _ := s.Get(testPhone)
		assert.Equal(t, i, entry.Attempts)
	}
}

func TestStore_SpendAttempt(t *testing.T) {
	t.Run("missing entry", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)

		_, result := s.SpendAttempt(testPhone, MaxAttempts)
		assert.Equal(t, AttemptMissing, result)
	})

	t.Run("expired entry is removed", func(t *testing.T) {
		s, clock := newTestStore(time.Minute)

		s.Save(testPhone, "123456")
		*clock = clock.Add(time.Minute + time.Second)

		_, result := s.SpendAttempt(testPhone, MaxAttempts)
		assert.Equal(t, AttemptExpired, result)

		_, ok := s.Get(testPhone)
		assert.False(t, ok)
	})

	t.Run("counts up to the budget then burns the entry", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)

		s.Save(testPhone, "123456")
		for i := 1; i <= MaxAttempts; i++ {
			entry, result := s.SpendAttempt(testPhone, MaxAttempts)
			assert.Equal(t, AttemptOK, result)
			assert.Equal(t, i, entry.Attempts)
		}

		_, result := s.SpendAttempt(testPhone, MaxAttempts)
		assert.Equal(t, AttemptExhausted, result)

		// exhaustion discards the entry, so one more looks never-requested
		_, result = s.SpendAttempt(testPhone, MaxAttempts)
		assert.Equal(t, AttemptMissing, result)
	})
}

func TestStore_CleanupExpired(t *testing.T) {
	s, clock := newTestStore(time.Minute)

	s.Save(testPhone, "123456")
	s.Save("+998 91 111 11 11", "654321")

	// just before expiry nothing is dropped
	*clock = clock.Add(time.Minute - time.Second)
	s.CleanupExpired()
	_, ok := s.Get(testPhone)
	assert.True(t, ok)

	// past expiry both entries go
	*clock = clock.Add(2 * time.Second)
	s.CleanupExpired()
	_, ok = s.Get(testPhone)
	assert.False(t, ok)
	_, ok = s.Get("+998 91 111 11 11")
	assert.False(t, ok)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}
