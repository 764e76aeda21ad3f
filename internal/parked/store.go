package parked

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/snapshot"
)

var (
	// ErrEmptyCart is returned when parking a snapshot with no items.
	ErrEmptyCart = errors.New("parked: cart is empty")
	// ErrNotFound is returned when the ticket never existed or Redis
	// already reclaimed it.
	ErrNotFound = errors.New("parked: ticket not found")
	// ErrExpired is returned when the ticket is past its expiry, whether
	// or not the key itself is still around.
	ErrExpired = errors.New("parked: ticket expired")
)

// DefaultTTL is how long a parked ticket stays recoverable.
const DefaultTTL = 24 * time.Hour

const indexKey = "parked:index"

type numberIssuer interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Ticket is a parked cart waiting to be recovered at the register.
type Ticket struct {
	Number    string        `json:"number"`
	Snapshot  snapshot.Cart `json:"snapshot"`
	Operator  string        `json:"operator"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// ListEntry is the ticket as shown on the recall screen.
type ListEntry struct {
	Number    string    `json:"number"`
	Operator  string    `json:"operator"`
	Notes     string    `json:"notes,omitempty"`
	ItemCount int       `json:"itemCount"`
	AgeHours  float64   `json:"ageHours"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store keeps parked tickets in Redis. Each ticket lives under its own
// key with a TTL matching its expiry; a ZSET indexed by creation time
// drives newest-first listing. Expiry is enforced on read as well, so a
// ticket past its deadline is gone even if the key briefly outlives it.
type Store struct {
	R       *redis.Client
	Numbers numberIssuer
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Store) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func ticketKey(number string) string {
	return "parked:ticket:" + number
}

// Park stores the snapshot under a fresh PARK number.
func (s *Store) Park(ctx context.Context, snap snapshot.Cart, operator, notes string) (Ticket, error) {
	if snap.Empty() {
		return Ticket{}, ErrEmptyCart
	}
	number, err := s.Numbers.Next(ctx, "PARK")
	if err != nil {
		return Ticket{}, err
	}
	now := s.now()
	ticket := Ticket{
		Number:    number,
		Snapshot:  snap,
		Operator:  operator,
		Notes:     notes,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	payload, err := json.Marshal(ticket)
	if err != nil {
		return Ticket{}, fmt.Errorf("parked: marshal ticket: %w", err)
	}

	pipe := s.R.TxPipeline()
	pipe.Set(ctx, ticketKey(number), payload, s.ttl())
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.UnixMilli()), Member: number})
	if _, err := pipe.Exec(ctx); err != nil {
		return Ticket{}, fmt.Errorf("parked: store ticket %s: %w", number, err)
	}
	return ticket, nil
}

// List returns non-expired tickets newest-first. Entries whose keys have
// already been reclaimed are dropped from the index as they are seen.
func (s *Store) List(ctx context.Context) ([]ListEntry, error) {
	numbers, err := s.R.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("parked: read index: %w", err)
	}
	now := s.now()
	out := make([]ListEntry, 0, len(numbers))
	for _, number := range numbers {
		data, err := s.R.Get(ctx, ticketKey(number)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				s.R.ZRem(ctx, indexKey, number)
				continue
			}
			return nil, fmt.Errorf("parked: read ticket %s: %w", number, err)
		}
		var ticket Ticket
		if err := json.Unmarshal(data, &ticket); err != nil {
			return nil, fmt.Errorf("parked: decode ticket %s: %w", number, err)
		}
		if !now.Before(ticket.ExpiresAt) {
			continue
		}
		out = append(out, ListEntry{
			Number:    ticket.Number,
			Operator:  ticket.Operator,
			Notes:     ticket.Notes,
			ItemCount: ticket.Snapshot.ItemCount(),
			AgeHours:  now.Sub(ticket.CreatedAt).Hours(),
			CreatedAt: ticket.CreatedAt,
			ExpiresAt: ticket.ExpiresAt,
		})
	}
	return out, nil
}

// Recover removes the ticket and returns its snapshot. Recovery is
// destructive: a second call for the same number reports ErrNotFound.
func (s *Store) Recover(ctx context.Context, number string) (Ticket, error) {
	data, err := s.R.GetDel(ctx, ticketKey(number)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.R.ZRem(ctx, indexKey, number)
			return Ticket{}, fmt.Errorf("%w: %s", ErrNotFound, number)
		}
		return Ticket{}, fmt.Errorf("parked: recover ticket %s: %w", number, err)
	}
	s.R.ZRem(ctx, indexKey, number)

	var ticket Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return Ticket{}, fmt.Errorf("parked: decode ticket %s: %w", number, err)
	}
	if !s.now().Before(ticket.ExpiresAt) {
		return Ticket{}, fmt.Errorf("%w: %s", ErrExpired, number)
	}
	return ticket, nil
}
