package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrExhausted is returned when a day's sequence would pass 9999. The
// 4-digit suffix is part of the printed receipt format, so the service
// fails closed instead of widening it.
var ErrExhausted = errors.New("numbering: daily sequence exhausted")

// maxPerDay is the largest suffix that still fits the zero-padded format.
const maxPerDay = 9999

// counterTTL keeps yesterday's counters around long enough to survive
// clock skew around midnight before Redis reclaims them.
const counterTTL = 48 * time.Hour

// Service issues strictly increasing, date-scoped document numbers such as
// SALE-20250101-0001. Each (prefix, day) pair is backed by its own Redis
// counter; INCR is atomic, so concurrent callers can never observe the
// same value and different prefixes or days never contend.
type Service struct {
	R   *redis.Client
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// DateKey returns the YYYYMMDD partition key for the service clock.
func (s *Service) DateKey() string {
	return s.now().Format("20060102")
}

// Next issues the next number for the prefix in today's partition.
// Sequences start at 1 each calendar day per prefix and are never reused:
// a failed caller burns its value rather than handing it to someone else.
func (s *Service) Next(ctx context.Context, prefix string) (string, error) {
	if s == nil || s.R == nil {
		return "", errors.New("numbering: redis client not configured")
	}
	dateKey := s.DateKey()
	counter := fmt.Sprintf("seq:%s:%s", prefix, dateKey)

	seq, err := s.R.Incr(ctx, counter).Result()
	if err != nil {
		return "", fmt.Errorf("numbering: increment %s: %w", counter, err)
	}
	if seq == 1 {
		// First issue of the day owns setting the expiry.
		if err := s.R.Expire(ctx, counter, counterTTL).Err(); err != nil {
			return "", fmt.Errorf("numbering: expire %s: %w", counter, err)
		}
	}
	if seq > maxPerDay {
		return "", fmt.Errorf("%s/%s at %d: %w", prefix, dateKey, seq, ErrExhausted)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, dateKey, seq), nil
}
