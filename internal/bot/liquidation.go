package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// ErrSeizeFailed - леджер не выполнил изъятие залога
var ErrSeizeFailed = errors.New("collateral seizure failed")

// Liquidator вносит quote на помеченный счёт и забирает его под контроль
type Liquidator struct {
	ledger          exchange.Ledger
	safetyBufferPct decimal.Decimal
	log             *utils.Logger
}

// NewLiquidator создаёт исполнителя изъятия
func NewLiquidator(ledger exchange.Ledger, safetyBufferPct decimal.Decimal, log *utils.Logger) *Liquidator {
	if log == nil {
		log = utils.L()
	}
	return &Liquidator{
		ledger:          ledger,
		safetyBufferPct: safetyBufferPct,
		log:             log.WithComponent("liquidator"),
	}
}

// SeizeAmount возвращает запрашиваемую сумму: дефицит плюс страховая надбавка
func (l *Liquidator) SeizeAmount(deficit LiquidationDeficit) decimal.Decimal {
	return utils.PctUp(deficit.Value, l.safetyBufferPct)
}

// Liquidate выполняет изъятие и возвращает свежий снимок счёта
//
// Запрошенной сумме не доверяем: фактическое состояние всегда читается из леджера.
// Свежий снимок обязан иметь ту же форму, что и исходный.
// Ошибка изъятия не повторяется в рамках цикла.
func (l *Liquidator) Liquidate(ctx context.Context, account *models.AccountSnapshot, deficit LiquidationDeficit) (*models.AccountSnapshot, error) {
	amount := l.SeizeAmount(deficit)

	l.log.Info("seizing collateral",
		utils.Account(account.Address),
		utils.Dec("deficit", deficit.Value),
		utils.Amount(amount),
	)

	if err := l.ledger.SeizeCollateral(ctx, account, amount); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeizeFailed, account.Address, err)
	}

	fresh, err := l.ledger.FetchAccount(ctx, account.Address)
	if err != nil {
		return nil, fmt.Errorf("refetch after seize %s: %w", account.Address, err)
	}
	if err := fresh.Validate(len(account.Deposits)); err != nil {
		return nil, fmt.Errorf("refetch after seize: %w", err)
	}
	return fresh, nil
}
