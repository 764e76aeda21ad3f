package drawer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// Store persists drawer sessions and movements.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	OpenSessionID(ctx context.Context, operator string) (uuid.UUID, bool, error)
	AddMovement(ctx context.Context, m *Movement) error
	Movements(ctx context.Context, sessionID uuid.UUID) ([]Movement, error)
	CashSalesTotal(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
	CloseSession(ctx context.Context, s Session) error
}

// Service owns the drawer lifecycle: open, record movements, reconcile.
type Service struct {
	Store   Store
	Locker  lock.Locker
	LockTTL time.Duration
	Log     zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Open starts a new session with the provided opening float.
func (s *Service) Open(ctx context.Context, operator string, openingFloat decimal.Decimal, notes string) (Session, error) {
	if openingFloat.IsNegative() {
		return Session{}, fmt.Errorf("%w: opening float %s", ErrInvalidMovement, openingFloat)
	}
	session := Session{
		ID:           uuid.New(),
		Operator:     operator,
		Status:       StatusOpen,
		OpeningFloat: money.Round2(openingFloat),
		OpeningNotes: notes,
		OpenedAt:     s.now(),
	}
	if err := s.Store.CreateSession(ctx, &session); err != nil {
		return Session{}, err
	}
	s.Log.Info().Str("session_id", session.ID.String()).Str("operator", operator).Msg("drawer session opened")
	return session, nil
}

// Get returns the session with its movements. Open sessions carry the
// running expected amount so the register can show drift before closing.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	session, err := s.Store.GetSession(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	movements, err := s.Store.Movements(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Session: session, Movements: movements}
	if session.Status == StatusOpen {
		expected, err := s.expected(ctx, session, movements)
		if err != nil {
			return Detail{}, err
		}
		detail.Expected = &expected
	} else {
		// Closed sessions report the expected amount frozen at close.
		detail.Expected = session.Expected
	}
	return detail, nil
}

// OpenSessionID reports the operator's currently open session, if any.
func (s *Service) OpenSessionID(ctx context.Context, operator string) (uuid.UUID, bool, error) {
	return s.Store.OpenSessionID(ctx, operator)
}

// AddMovement records a manual cash in/out against an open session.
func (s *Service) AddMovement(ctx context.Context, sessionID uuid.UUID, direction string, amount decimal.Decimal, reason, operator string) (Movement, error) {
	if direction != DirectionIn && direction != DirectionOut {
		return Movement{}, fmt.Errorf("%w: direction %q", ErrInvalidMovement, direction)
	}
	if !amount.IsPositive() {
		return Movement{}, fmt.Errorf("%w: amount %s", ErrInvalidMovement, amount)
	}
	session, err := s.Store.GetSession(ctx, sessionID)
	if err != nil {
		return Movement{}, err
	}
	if session.Status != StatusOpen {
		return Movement{}, ErrSessionClosed
	}
	movement := Movement{
		SessionID: sessionID,
		Direction: direction,
		Amount:    money.Round2(amount),
		Reason:    reason,
		Operator:  operator,
		CreatedAt: s.now(),
	}
	if err := s.Store.AddMovement(ctx, &movement); err != nil {
		return Movement{}, err
	}
	return movement, nil
}

// expected computes opening float plus signed movements plus the cash
// sales attributed to the session.
func (s *Service) expected(ctx context.Context, session Session, movements []Movement) (decimal.Decimal, error) {
	total := session.OpeningFloat
	for _, m := range movements {
		switch m.Direction {
		case DirectionIn:
			total = total.Add(m.Amount)
		case DirectionOut:
			total = total.Sub(m.Amount)
		}
	}
	cashSales, err := s.Store.CashSalesTotal(ctx, session.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Add(cashSales), nil
}

// Close reconciles and permanently closes the session. The whole step is
// serialized per session with a Redis lock so two terminals cannot both
// win the close.
func (s *Service) Close(ctx context.Context, id uuid.UUID, counted decimal.Decimal, notes string) (Session, error) {
	if counted.IsNegative() {
		return Session{}, fmt.Errorf("%w: counted amount %s", ErrInvalidMovement, counted)
	}
	var closed Session
	err := s.Locker.WithLock(ctx, "drawer:close:"+id.String(), s.LockTTL, func(ctx context.Context) error {
		session, err := s.Store.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if session.Status != StatusOpen {
			return ErrAlreadyClosed
		}
		movements, err := s.Store.Movements(ctx, id)
		if err != nil {
			return err
		}
		expected, err := s.expected(ctx, session, movements)
		if err != nil {
			return err
		}
		countedRounded := money.Round2(counted)
		difference := countedRounded.Sub(expected)
		now := s.now()

		session.Status = StatusClosed
		session.ClosingCount = &countedRounded
		session.Expected = &expected
		session.Difference = &difference
		session.ClosingNotes = notes
		session.ClosedAt = &now
		if err := s.Store.CloseSession(ctx, session); err != nil {
			return err
		}
		closed = session
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	result := "balanced"
	switch {
	case closed.Difference.IsPositive():
		result = "overage"
	case closed.Difference.IsNegative():
		result = "shortage"
	}
	if obs.DrawerCloseTotal != nil {
		obs.DrawerCloseTotal.WithLabelValues(result).Inc()
	}
	s.Log.Info().
		Str("session_id", closed.ID.String()).
		Str("expected", closed.Expected.String()).
		Str("counted", closed.ClosingCount.String()).
		Str("difference", closed.Difference.String()).
		Msg("drawer session closed")
	return closed, nil
}
