package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// Unwinder снимает все открытые ордера счёта на площадке
type Unwinder struct {
	venue exchange.Venue
	log   *utils.Logger
}

// NewUnwinder создаёт Unwinder
func NewUnwinder(venue exchange.Venue, log *utils.Logger) *Unwinder {
	if log == nil {
		log = utils.L()
	}
	return &Unwinder{venue: venue, log: log.WithComponent("unwinder")}
}

// CancelAllOpenOrders отменяет ордера счёта на всех рынках параллельно
//
// Книга загружается для каждого рынка. Ошибка одного рынка не прерывает остальные:
// функция ждёт все N попыток и возвращает объединённую ошибку.
func (u *Unwinder) CancelAllOpenOrders(ctx context.Context, account *models.AccountSnapshot, markets []models.Market) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	// Без WithContext: сбой одного рынка не должен отменять остальные
	var g errgroup.Group
	for _, m := range markets {
		m := m
		g.Go(func() error {
			if err := u.cancelMarket(ctx, account, m); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("market %s: %w", m.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (u *Unwinder) cancelMarket(ctx context.Context, account *models.AccountSnapshot, market models.Market) error {
	book, err := u.venue.LoadBook(ctx, market)
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}

	ids := account.OpenOrders[market.Index]
	if len(ids) == 0 {
		return nil
	}

	if err := u.venue.CancelOrders(ctx, market, book, account, ids); err != nil {
		return fmt.Errorf("cancel %d orders: %w", len(ids), err)
	}
	u.log.Debug("orders cancelled",
		utils.Account(account.Address),
		utils.Market(market.Name),
		utils.Int("count", len(ids)),
	)
	return nil
}
