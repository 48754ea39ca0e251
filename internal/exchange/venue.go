package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

// Методы шлюза площадки
const (
	methodLoadOrderBook = "loadOrderBook"
	methodCancelOrders  = "cancelOrders"
	methodPlaceOrder    = "placeOrder"
	methodSettleFunds   = "settleFunds"
)

// VenueClient реализует Venue поверх JSON-RPC шлюза
type VenueClient struct {
	rpc          *rpcClient
	group        string
	owner        string
	dexProgramID string
	now          func() time.Time
}

var _ Venue = (*VenueClient)(nil)

type orderBookDTO struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// LoadBook загружает биды и аски рынка
func (c *VenueClient) LoadBook(ctx context.Context, market models.Market) (*OrderBook, error) {
	var dto orderBookDTO
	params := map[string]string{"market": market.Address, "dex_program_id": c.dexProgramID}
	if err := c.rpc.read(ctx, methodLoadOrderBook, params, &dto); err != nil {
		return nil, err
	}
	return &OrderBook{
		Market:   market.Address,
		Bids:     dto.Bids,
		Asks:     dto.Asks,
		LoadedAt: c.now(),
	}, nil
}

// CancelOrders отменяет ордера счёта
//
// Ордера, которых уже нет в книге (исполнены или отменены), пропускаются.
// Если отменять нечего, запрос к шлюзу не отправляется.
func (c *VenueClient) CancelOrders(ctx context.Context, market models.Market, book *OrderBook, account *models.AccountSnapshot, orderIDs []string) error {
	live := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		if book.Contains(id) {
			live = append(live, id)
		}
	}
	if len(live) == 0 {
		return nil
	}

	params := map[string]interface{}{
		"group":     c.group,
		"account":   account.Address,
		"owner":     c.owner,
		"market":    market.Address,
		"order_ids": live,
	}
	return c.rpc.write(ctx, methodCancelOrders, params, nil)
}

// PlaceOrder выставляет ордер от имени счёта
func (c *VenueClient) PlaceOrder(ctx context.Context, account *models.AccountSnapshot, market models.Market, side Side, price, size decimal.Decimal, orderType OrderType) (string, error) {
	params := map[string]interface{}{
		"group":      c.group,
		"account":    account.Address,
		"owner":      c.owner,
		"market":     market.Address,
		"side":       side,
		"price":      price,
		"size":       size,
		"order_type": orderType,
	}

	var result struct {
		OrderID string `json:"order_id"`
	}
	if err := c.rpc.write(ctx, methodPlaceOrder, params, &result); err != nil {
		return "", err
	}
	return result.OrderID, nil
}

// Settle переводит исполненные средства по всем рынкам счёта
func (c *VenueClient) Settle(ctx context.Context, account *models.AccountSnapshot, markets []models.Market) error {
	addresses := make([]string, len(markets))
	for i, m := range markets {
		addresses[i] = m.Address
	}

	params := map[string]interface{}{
		"group":   c.group,
		"account": account.Address,
		"owner":   c.owner,
		"markets": addresses,
	}
	return c.rpc.write(ctx, methodSettleFunds, params, nil)
}
