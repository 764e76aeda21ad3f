package drawer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/money"
)

type memStore struct {
	sessions  map[uuid.UUID]Session
	movements map[uuid.UUID][]Movement
	cashSales map[uuid.UUID]decimal.Decimal
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  make(map[uuid.UUID]Session),
		movements: make(map[uuid.UUID][]Movement),
		cashSales: make(map[uuid.UUID]decimal.Decimal),
	}
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id uuid.UUID) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) OpenSessionID(_ context.Context, operator string) (uuid.UUID, bool, error) {
	for id, s := range m.sessions {
		if s.Operator == operator && s.Status == StatusOpen {
			return id, true, nil
		}
	}
	return uuid.UUID{}, false, nil
}

func (m *memStore) AddMovement(_ context.Context, mv *Movement) error {
	m.nextID++
	mv.ID = m.nextID
	m.movements[mv.SessionID] = append(m.movements[mv.SessionID], *mv)
	return nil
}

func (m *memStore) Movements(_ context.Context, sessionID uuid.UUID) ([]Movement, error) {
	return m.movements[sessionID], nil
}

func (m *memStore) CashSalesTotal(_ context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	total, ok := m.cashSales[sessionID]
	if !ok {
		return decimal.Zero, nil
	}
	return total, nil
}

func (m *memStore) CloseSession(_ context.Context, s Session) error {
	current, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != StatusOpen {
		return ErrAlreadyClosed
	}
	m.sessions[s.ID] = s
	return nil
}

func newService(t *testing.T, store *memStore) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Store:   store,
		Locker:  lock.Locker{R: client},
		LockTTL: time.Second,
		Log:     zerolog.Nop(),
		Now:     func() time.Time { return time.Date(2025, 1, 1, 22, 0, 0, 0, time.UTC) },
	}
}

func TestCloseReconciliation(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()

	session, err := svc.Open(ctx, "ana", money.MustDecimal("100.00"), "")
	require.NoError(t, err)

	_, err = svc.AddMovement(ctx, session.ID, DirectionIn, money.MustDecimal("50.00"), "change from safe", "ana")
	require.NoError(t, err)
	_, err = svc.AddMovement(ctx, session.ID, DirectionOut, money.MustDecimal("20.00"), "supplier payout", "ana")
	require.NoError(t, err)
	store.cashSales[session.ID] = money.MustDecimal("75.00")

	closed, err := svc.Close(ctx, session.ID, money.MustDecimal("200.00"), "end of shift")
	require.NoError(t, err)

	require.Equal(t, StatusClosed, closed.Status)
	require.True(t, closed.Expected.Equal(money.MustDecimal("205.00")),
		"expected 100 + 50 - 20 + 75 = 205, got %s", closed.Expected)
	require.True(t, closed.Difference.Equal(money.MustDecimal("-5.00")),
		"difference should be counted - expected, got %s", closed.Difference)
	require.NotNil(t, closed.ClosedAt)
}

func TestCloseTwiceFails(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()

	session, err := svc.Open(ctx, "ana", money.MustDecimal("100.00"), "")
	require.NoError(t, err)

	_, err = svc.Close(ctx, session.ID, money.MustDecimal("100.00"), "")
	require.NoError(t, err)
	_, err = svc.Close(ctx, session.ID, money.MustDecimal("100.00"), "")
	require.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestNoMovementAfterClose(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()

	session, err := svc.Open(ctx, "ana", money.MustDecimal("100.00"), "")
	require.NoError(t, err)
	_, err = svc.Close(ctx, session.ID, money.MustDecimal("100.00"), "")
	require.NoError(t, err)

	_, err = svc.AddMovement(ctx, session.ID, DirectionIn, money.MustDecimal("10.00"), "late drop", "ana")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestAddMovementValidation(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()

	session, err := svc.Open(ctx, "ana", money.MustDecimal("100.00"), "")
	require.NoError(t, err)

	_, err = svc.AddMovement(ctx, session.ID, "sideways", money.MustDecimal("10.00"), "nope", "ana")
	require.ErrorIs(t, err, ErrInvalidMovement)
	_, err = svc.AddMovement(ctx, session.ID, DirectionIn, decimal.Zero, "nope", "ana")
	require.ErrorIs(t, err, ErrInvalidMovement)
	_, err = svc.AddMovement(ctx, session.ID, DirectionOut, money.MustDecimal("-3.00"), "nope", "ana")
	require.ErrorIs(t, err, ErrInvalidMovement)
}

func TestGetOpenSessionCarriesExpected(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store)
	ctx := context.Background()

	session, err := svc.Open(ctx, "ana", money.MustDecimal("100.00"), "")
	require.NoError(t, err)
	_, err = svc.AddMovement(ctx, session.ID, DirectionIn, money.MustDecimal("25.00"), "drop", "ana")
	require.NoError(t, err)

	detail, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Expected)
	require.True(t, detail.Expected.Equal(money.MustDecimal("125.00")))
	require.Len(t, detail.Movements, 1)

	_, err = svc.Close(ctx, session.ID, money.MustDecimal("125.00"), "")
	require.NoError(t, err)

	detail, err = svc.Get(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Expected, "closed session keeps its reconciled expected")
	require.True(t, detail.Expected.Equal(money.MustDecimal("125.00")))
}

func TestUnknownSession(t *testing.T) {
	svc := newService(t, newMemStore())
	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
