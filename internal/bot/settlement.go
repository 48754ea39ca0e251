package bot

import (
	"context"
	"errors"
	"fmt"

	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// Settler переводит средства с площадки на счёт и гасит встречные долги
type Settler struct {
	ledger        exchange.Ledger
	venue         exchange.Venue
	settleBorrows bool
	log           *utils.Logger
}

// NewSettler создаёт Settler
func NewSettler(ledger exchange.Ledger, venue exchange.Venue, settleBorrows bool, log *utils.Logger) *Settler {
	if log == nil {
		log = utils.L()
	}
	return &Settler{
		ledger:        ledger,
		venue:         venue,
		settleBorrows: settleBorrows,
		log:           log.WithComponent("settler"),
	}
}

// SettleAll выполняет расчёт по всем рынкам и возвращает свежий снимок
//
// Если включено гашение долгов, для каждого токена min(deposit, borrow)
// списывается с обеих сторон. Ошибка гашения одного токена не прерывает остальные.
// Снимки из леджера сверяются по числу токенов с переданным счётом.
func (s *Settler) SettleAll(ctx context.Context, account *models.AccountSnapshot, markets []models.Market) (*models.AccountSnapshot, error) {
	if err := s.venue.Settle(ctx, account, markets); err != nil {
		return nil, fmt.Errorf("settle funds %s: %w", account.Address, err)
	}

	numTokens := len(account.Deposits)

	var errs []error
	if s.settleBorrows {
		errs = s.offsetBorrows(ctx, account.Address, numTokens)
	}

	fresh, err := s.ledger.FetchAccount(ctx, account.Address)
	if err != nil {
		errs = append(errs, fmt.Errorf("refetch after settle %s: %w", account.Address, err))
		return nil, errors.Join(errs...)
	}
	if err := fresh.Validate(numTokens); err != nil {
		errs = append(errs, fmt.Errorf("refetch after settle: %w", err))
		return nil, errors.Join(errs...)
	}
	return fresh, errors.Join(errs...)
}

func (s *Settler) offsetBorrows(ctx context.Context, address string, numTokens int) []error {
	current, err := s.ledger.FetchAccount(ctx, address)
	if err != nil {
		return []error{fmt.Errorf("fetch before settle borrow %s: %w", address, err)}
	}
	if err := current.Validate(numTokens); err != nil {
		return []error{fmt.Errorf("fetch before settle borrow: %w", err)}
	}

	var errs []error
	for token := range current.Borrows {
		qty := utils.MinDec(current.Deposits[token], current.Borrows[token])
		if !qty.IsPositive() {
			continue
		}
		if err := s.ledger.SettleBorrow(ctx, current, token, qty); err != nil {
			errs = append(errs, fmt.Errorf("settle borrow token %d: %w", token, err))
			continue
		}
		s.log.Debug("borrow settled",
			utils.Account(address),
			utils.Int("token", token),
			utils.Size(qty),
		)
	}
	return errs
}
