package drawer

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the session id does not exist.
	ErrNotFound = errors.New("drawer: session not found")
	// ErrSessionClosed is returned when recording a movement against a
	// closed session.
	ErrSessionClosed = errors.New("drawer: session is closed")
	// ErrAlreadyClosed is returned when closing a session twice. Close is
	// irreversible; the first reconciliation stands.
	ErrAlreadyClosed = errors.New("drawer: session already closed")
	// ErrInvalidMovement is returned for a non-positive amount or an
	// unknown direction.
	ErrInvalidMovement = errors.New("drawer: invalid movement")
)

// Session statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Movement directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Session is one cash drawer shift. Closing fields stay nil until the
// session is reconciled.
type Session struct {
	ID           uuid.UUID        `json:"id"`
	Operator     string           `json:"operator"`
	Status       string           `json:"status"`
	OpeningFloat decimal.Decimal  `json:"openingFloat"`
	ClosingCount *decimal.Decimal `json:"closingCount,omitempty"`
	Expected     *decimal.Decimal `json:"expected,omitempty"`
	Difference   *decimal.Decimal `json:"difference,omitempty"`
	OpeningNotes string           `json:"openingNotes,omitempty"`
	ClosingNotes string           `json:"closingNotes,omitempty"`
	OpenedAt     time.Time        `json:"openedAt"`
	ClosedAt     *time.Time       `json:"closedAt,omitempty"`
}

// Movement is one manual cash in/out during a session.
type Movement struct {
	ID        int64           `json:"id"`
	SessionID uuid.UUID       `json:"sessionId"`
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Operator  string          `json:"operator,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Detail is the session as served to the register: the session itself,
// its movements, and the running expected amount for open sessions.
type Detail struct {
	Session   Session          `json:"session"`
	Movements []Movement       `json:"movements"`
	Expected  *decimal.Decimal `json:"expected,omitempty"`
}
