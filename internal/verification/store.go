// Package verification holds the ephemeral one-time codes for phone
// login. State lives only in process memory: correctness is only needed
// within one running process for the span of a single login attempt
// window, so there is no external persistence and no cross-instance
// sharing.
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
)

// MaxAttempts failed verifications before an entry is discarded.
const MaxAttempts = 3

// Store keeps pending verification codes keyed by phone number. All
// methods are safe for concurrent use; none of them returns an error —
// invalid states show up as absent entries.
type Store struct {
	mu      sync.Mutex
	entries map[string]domain.VerificationEntry

	codeTTL time.Duration
	log     zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

func NewStore(codeTTL time.Duration, log logger.Logger) *Store {
	return &Store{
		entries: make(map[string]domain.VerificationEntry),
		codeTTL: codeTTL,
		log:     log.With().Str("module", "verification").Logger(),
		now:     time.Now,
	}
}

// Save creates or overwrites the entry for the phone. The expiry is fixed
// now and never extended; attempts reset to zero.
func (s *Store) Save(phone, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[phone] = domain.VerificationEntry{
		Code:      code,
		ExpiresAt: s.now().Add(s.codeTTL),
		Attempts:  0,
	}
}

// Get returns the entry for the phone, if any.
func (s *Store) Get(phone string) (domain.VerificationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[phone]
	return entry, ok
}

// IncrementAttempts bumps the attempt counter in place. No-op when the
// entry is absent.
func (s *Store) IncrementAttempts(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[phone]
	if !ok {
		return
	}
	entry.Attempts++
	s.entries[phone] = entry
}

// AttemptResult classifies the outcome of SpendAttempt.
type AttemptResult int

const (
	AttemptOK AttemptResult = iota
	AttemptMissing
	AttemptExpired
	AttemptExhausted
)

// SpendAttempt checks and consumes one verification attempt for the phone
// in a single step under the store mutex, so concurrent submissions for
// the same phone cannot stretch the attempt budget. Expired and exhausted
// entries are removed before reporting. On AttemptOK the returned entry
// carries the already incremented counter.
func (s *Store) SpendAttempt(phone string, max int) (domain.VerificationEntry, AttemptResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[phone]
	if !ok {
		return domain.VerificationEntry{}, AttemptMissing
	}

	if entry.ExpiresAt.Before(s.now()) {
		delete(s.entries, phone)
		return entry, AttemptExpired
	}

	if entry.Attempts >= max {
		delete(s.entries, phone)
		return entry, AttemptExhausted
	}

	entry.Attempts++
	s.entries[phone] = entry
	return entry, AttemptOK
}

// Delete discards the entry for the phone.
func (s *Store) Delete(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, phone)
}

// CleanupExpired drops every entry past its expiry. Called opportunistically
// before each request/verify operation; there is no background scheduler.
func (s *Store) CleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for phone, entry := range s.entries {
		if entry.ExpiresAt.Before(now) {
			delete(s.entries, phone)
			s.log.Debug().Str("phone", phone).Msg("expired verification code removed")
		}
	}
}

// GenerateCode returns a random six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
