package balance

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	QueryTimeoutDuration = time.Second * 5
)

type TransactionType int16

const (
	TopUp      TransactionType = 1
	Withdrawal TransactionType = 2
	Refund     TransactionType = 3
	Payment    TransactionType = 4
	Bonus      TransactionType = 5
)

func (t TransactionType) String() string {
	switch t {
	case TopUp:
		return "TopUp"
	case Withdrawal:
		return "Withdrawal"
	case Refund:
		return "Refund"
	case Payment:
		return "Payment"
	case Bonus:
		return "Bonus"
	default:
		return "Unknown"
	}
}

func (t TransactionType) Valid() bool { return t >= TopUp && t <= Bonus }

// Credits reports whether the type adds money to the balance.
func (t TransactionType) Credits() bool {
	return t == TopUp || t == Refund || t == Bonus
}

// Transaction is a ledger entry. AmountCents is positive for credits and
// negative for debits.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        int64           `json:"user_id"`
	AmountCents   int64           `json:"amount_cents"`
	Type          TransactionType `json:"type"`
	TypeName      string          `json:"type_name"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
