// Package wallet moves money in and out of user balances. Every change
// locks the user's balance row and records a ledger entry in the same
// transaction.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"carrent/internal/domain/balance"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MinTopUpCents int64 = 30 * 100
	MaxTopUpCents int64 = 100000 * 100
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrTopUpTooSmall     = fmt.Errorf("%w: minimum top-up is 30", ErrInvalidAmount)
	ErrTopUpTooLarge     = fmt.Errorf("%w: maximum top-up is 100000", ErrInvalidAmount)
	ErrInvalidType       = errors.New("unknown transaction type")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = balance.ErrUserNotFound
)

type Repository interface {
	balance.Store
	WithTx(ctx context.Context, fn func(balance.Store) error) error
}

type Service struct {
	repo   Repository
	logger *zap.SugaredLogger
}

func NewService(repo Repository, logger *zap.SugaredLogger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ValidateTopUp checks the top-up bounds.
func ValidateTopUp(cents int64) error {
	switch {
	case cents <= 0:
		return ErrInvalidAmount
	case cents < MinTopUpCents:
		return ErrTopUpTooSmall
	case cents > MaxTopUpCents:
		return ErrTopUpTooLarge
	}
	return nil
}

type Payment struct {
	UserID        int64
	AmountCents   int64
	Type          balance.TransactionType
	Description   string
	PaymentMethod string
	Reference     string
}

func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) TopUp(ctx context.Context, userID, cents int64, description, method string) (int64, error) {
	if err := ValidateTopUp(cents); err != nil {
		return 0, err
	}
	if description == "" {
		description = fmt.Sprintf("Balance top-up of %d.%02d", cents/100, cents%100)
	}
	return s.ProcessPayment(ctx, Payment{
		UserID: userID, AmountCents: cents, Type: balance.TopUp,
		Description: description, PaymentMethod: method,
	})
}

func (s *Service) Deduct(ctx context.Context, userID, cents int64, description string) (int64, error) {
	return s.ProcessPayment(ctx, Payment{
		UserID: userID, AmountCents: cents, Type: balance.Payment, Description: description,
	})
}

// ProcessPayment applies p and returns the new balance. TopUp, Refund and
// Bonus credit the balance, Payment and Withdrawal debit it.
func (s *Service) ProcessPayment(ctx context.Context, p Payment) (int64, error) {
	if p.AmountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	if !p.Type.Valid() {
		return 0, ErrInvalidType
	}
	if p.Reference == "" {
		p.Reference = uuid.NewString()
	}

	var newBalance int64
	err := s.repo.WithTx(ctx, func(st balance.Store) error {
		current, err := st.Lock(ctx, p.UserID)
		if err != nil {
			return err
		}

		signed := p.AmountCents
		if !p.Type.Credits() {
			if current < p.AmountCents {
				return ErrInsufficientFunds
			}
			signed = -p.AmountCents
		}
		newBalance = current + signed

		if err := st.Set(ctx, p.UserID, newBalance); err != nil {
			return err
		}
		return st.InsertTransaction(ctx, &balance.Transaction{
			ID:            uuid.New(),
			UserID:        p.UserID,
			AmountCents:   signed,
			Type:          p.Type,
			Description:   p.Description,
			PaymentMethod: p.PaymentMethod,
			Reference:     p.Reference,
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Infow("balance changed", "user_id", p.UserID, "type", p.Type.String(), "amount_cents", p.AmountCents)
	return newBalance, nil
}

// HasSufficient is false for unknown users.
func (s *Service) HasSufficient(ctx context.Context, userID, cents int64) (bool, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, balance.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return current >= cents, nil
}

type History struct {
	Transactions   []balance.Transaction `json:"transactions"`
	CurrentBalance int64                 `json:"current_balance_cents"`
	Total          int                   `json:"total"`
}

func (s *Service) History(ctx context.Context, userID int64, limit, offset int) (*History, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, total, err := s.repo.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &History{Transactions: list, CurrentBalance: current, Total: total}, nil
}
