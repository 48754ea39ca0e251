package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// NetPosition - чистая позиция по не-quote токену в quote
type NetPosition struct {
	TokenIndex int
	Quantity   decimal.Decimal // deposit - borrow
	Value      decimal.Decimal // Quantity * price
}

// OrderIntent - запланированный ордер ребалансировки
type OrderIntent struct {
	TokenIndex int
	Market     models.Market
	Side       exchange.Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	NetValue   decimal.Decimal
}

// PlacedOrder - результат отправки одного ордера
type PlacedOrder struct {
	Intent  OrderIntent
	OrderID string
	Err     error
}

// Rebalancer закрывает позиции счёта в не-quote токенах лимитными ордерами
//
// Длинные позиции продаются ниже оракула, короткие откупаются выше.
// План упорядочен стабильной сортировкой по убыванию стоимости чистой позиции,
// поэтому все продажи (освобождают quote) идут раньше покупок.
type Rebalancer struct {
	venue           exchange.Venue
	sellSlippagePct decimal.Decimal
	buySlippagePct  decimal.Decimal
	log             *utils.Logger
}

// NewRebalancer создаёт Rebalancer
func NewRebalancer(venue exchange.Venue, sellSlippagePct, buySlippagePct decimal.Decimal, log *utils.Logger) *Rebalancer {
	if log == nil {
		log = utils.L()
	}
	return &Rebalancer{
		venue:           venue,
		sellSlippagePct: sellSlippagePct,
		buySlippagePct:  buySlippagePct,
		log:             log.WithComponent("rebalancer"),
	}
}

// NetPositions считает чистые позиции по всем не-quote токенам в порядке индексов
func NetPositions(account *models.AccountSnapshot, snapshot *models.MarketSnapshot) []NetPosition {
	quote := snapshot.NumTokens() - 1
	out := make([]NetPosition, 0, quote)
	for token := 0; token < quote; token++ {
		qty := account.Net(token)
		out = append(out, NetPosition{
			TokenIndex: token,
			Quantity:   qty,
			Value:      qty.Mul(snapshot.Price(token)),
		})
	}
	return out
}

// Plan строит ордера по убыванию стоимости позиции
//
// Сортировка стабильная: при равной стоимости сохраняется порядок токенов.
// Нулевые позиции и токены без рынка пропускаются.
func (r *Rebalancer) Plan(account *models.AccountSnapshot, snapshot *models.MarketSnapshot) []OrderIntent {
	positions := NetPositions(account, snapshot)
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Value.GreaterThan(positions[j].Value)
	})

	intents := make([]OrderIntent, 0, len(positions))
	for _, p := range positions {
		if p.Value.IsZero() {
			continue
		}

		market, ok := snapshot.MarketForToken(p.TokenIndex)
		if !ok {
			r.log.Warn("no market for token, position left open",
				utils.Account(account.Address),
				utils.Int("token", p.TokenIndex),
				utils.Dec("value", p.Value),
			)
			continue
		}

		price := snapshot.Price(p.TokenIndex)
		intent := OrderIntent{TokenIndex: p.TokenIndex, Market: market, NetValue: p.Value}
		if p.Value.IsPositive() {
			intent.Side = exchange.SideSell
			intent.Price = utils.PctDown(price, r.sellSlippagePct)
			intent.Size = account.Deposits[p.TokenIndex]
		} else {
			intent.Side = exchange.SideBuy
			intent.Price = utils.PctUp(price, r.buySlippagePct)
			intent.Size = account.Borrows[p.TokenIndex]
		}
		intents = append(intents, intent)
	}
	return intents
}

// Execute отправляет каждый ордер плана ровно один раз, последовательно
//
// Отказ одной ноги записывается, проход продолжается со следующей.
// Возвращает все попытки и объединённую ошибку.
func (r *Rebalancer) Execute(ctx context.Context, account *models.AccountSnapshot, snapshot *models.MarketSnapshot) ([]PlacedOrder, error) {
	intents := r.Plan(account, snapshot)
	placed := make([]PlacedOrder, 0, len(intents))

	var errs []error
	for _, intent := range intents {
		id, err := r.venue.PlaceOrder(ctx, account, intent.Market, intent.Side, intent.Price, intent.Size, exchange.OrderTypeLimit)
		placed = append(placed, PlacedOrder{Intent: intent, OrderID: id, Err: err})

		if err != nil {
			RecordOrder(string(intent.Side), models.OrderStatusRejected)
			errs = append(errs, fmt.Errorf("%s %s %s@%s: %w", intent.Side, intent.Market.Name, intent.Size, intent.Price, err))
			r.log.Warn("rebalance order rejected",
				utils.Account(account.Address),
				utils.Market(intent.Market.Name),
				utils.Side(string(intent.Side)),
				utils.Err(err),
			)
			continue
		}

		RecordOrder(string(intent.Side), models.OrderStatusPlaced)
		r.log.Info("rebalance order placed",
			utils.Account(account.Address),
			utils.Market(intent.Market.Name),
			utils.Side(string(intent.Side)),
			utils.Price(intent.Price),
			utils.Size(intent.Size),
			utils.OrderID(id),
		)
	}
	return placed, errors.Join(errs...)
}
