package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

// Методы шлюза леджера
const (
	methodGetGroupState     = "getGroupState"
	methodGetMarginAccounts = "getMarginAccounts"
	methodGetMarginAccount  = "getMarginAccount"
	methodGetPrices         = "getPrices"
	methodGetOpenOrders     = "getOpenOrders"
	methodLiquidate         = "liquidate"
	methodSettleBorrow      = "settleBorrow"
)

// LedgerClient реализует Ledger поверх JSON-RPC шлюза
//
// Подпись транзакций выполняет шлюз, клиент передаёт публичный ключ ликвидатора.
type LedgerClient struct {
	rpc        *rpcClient
	group      string
	liquidator string
	now        func() time.Time
}

var _ Ledger = (*LedgerClient)(nil)

// DTO ответа шлюза

type marketDTO struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	BaseToken int    `json:"base_token"`
}

type groupStateDTO struct {
	Address        string          `json:"address"`
	Tokens         []string        `json:"tokens"`
	Markets        []marketDTO     `json:"markets"`
	MaintCollRatio decimal.Decimal `json:"maint_coll_ratio"`
	InitCollRatio  decimal.Decimal `json:"init_coll_ratio"`
}

type accountDTO struct {
	Address  string            `json:"address"`
	Owner    string            `json:"owner"`
	Deposits []decimal.Decimal `json:"deposits"`
	Borrows  []decimal.Decimal `json:"borrows"`
}

type openOrdersDTO struct {
	Market   int      `json:"market"`
	OrderIDs []string `json:"order_ids"`
}

func (c *LedgerClient) toSnapshot(a accountDTO) *models.AccountSnapshot {
	return &models.AccountSnapshot{
		Address:   a.Address,
		Owner:     a.Owner,
		Deposits:  a.Deposits,
		Borrows:   a.Borrows,
		FetchedAt: c.now(),
	}
}

// FetchGroupState получает и валидирует конфигурацию группы
func (c *LedgerClient) FetchGroupState(ctx context.Context) (*models.GroupState, error) {
	var dto groupStateDTO
	if err := c.rpc.read(ctx, methodGetGroupState, map[string]string{"group": c.group}, &dto); err != nil {
		return nil, err
	}

	group := &models.GroupState{
		Address:        dto.Address,
		Tokens:         dto.Tokens,
		Markets:        make([]models.Market, len(dto.Markets)),
		MaintCollRatio: dto.MaintCollRatio,
		InitCollRatio:  dto.InitCollRatio,
	}
	for i, m := range dto.Markets {
		group.Markets[i] = models.Market{Index: m.Index, Name: m.Name, Address: m.Address, BaseToken: m.BaseToken}
	}
	if group.Address == "" {
		group.Address = c.group
	}

	if err := group.Validate(); err != nil {
		return nil, err
	}
	return group, nil
}

// FetchAllAccounts получает все счета группы в порядке шлюза
func (c *LedgerClient) FetchAllAccounts(ctx context.Context, group *models.GroupState) ([]*models.AccountSnapshot, error) {
	var dtos []accountDTO
	if err := c.rpc.read(ctx, methodGetMarginAccounts, map[string]string{"group": group.Address}, &dtos); err != nil {
		return nil, err
	}

	accounts := make([]*models.AccountSnapshot, len(dtos))
	for i, a := range dtos {
		accounts[i] = c.toSnapshot(a)
	}
	return accounts, nil
}

// FetchAccount получает свежий снимок одного счёта
func (c *LedgerClient) FetchAccount(ctx context.Context, address string) (*models.AccountSnapshot, error) {
	var dto accountDTO
	params := map[string]string{"group": c.group, "account": address}
	if err := c.rpc.read(ctx, methodGetMarginAccount, params, &dto); err != nil {
		return nil, err
	}
	if dto.Address == "" {
		dto.Address = address
	}
	return c.toSnapshot(dto), nil
}

// FetchPrices получает вектор цен длиной NumTokens
func (c *LedgerClient) FetchPrices(ctx context.Context, group *models.GroupState) ([]decimal.Decimal, error) {
	var prices []decimal.Decimal
	if err := c.rpc.read(ctx, methodGetPrices, map[string]string{"group": group.Address}, &prices); err != nil {
		return nil, err
	}
	if len(prices) != group.NumTokens() {
		return nil, fmt.Errorf("%w: gateway returned %d prices for %d tokens", models.ErrPriceMismatch, len(prices), group.NumTokens())
	}
	return prices, nil
}

// LoadOpenOrders получает открытые ордера счёта на всех рынках
func (c *LedgerClient) LoadOpenOrders(ctx context.Context, account *models.AccountSnapshot) (models.OpenOrders, error) {
	var dtos []openOrdersDTO
	params := map[string]string{"group": c.group, "account": account.Address}
	if err := c.rpc.read(ctx, methodGetOpenOrders, params, &dtos); err != nil {
		return nil, err
	}

	orders := make(models.OpenOrders, len(dtos))
	for _, o := range dtos {
		if len(o.OrderIDs) > 0 {
			orders[o.Market] = append(orders[o.Market], o.OrderIDs...)
		}
	}
	return orders, nil
}

// SeizeCollateral вносит quote-актив на счёт и передаёт счёт ликвидатору
//
// Вектор депозита имеет форму балансов счёта, ненулевой только quote-слот.
func (c *LedgerClient) SeizeCollateral(ctx context.Context, account *models.AccountSnapshot, quoteAmount decimal.Decimal) error {
	if len(account.Deposits) == 0 {
		return fmt.Errorf("%w: account %s has no balance slots", models.ErrInvalidSnapshot, account.Address)
	}
	deposits := make([]decimal.Decimal, len(account.Deposits))
	for i := range deposits {
		deposits[i] = decimal.Zero
	}
	deposits[len(deposits)-1] = quoteAmount

	params := map[string]interface{}{
		"group":              c.group,
		"account":            account.Address,
		"liquidator":         c.liquidator,
		"deposit_quantities": deposits,
	}
	return c.rpc.write(ctx, methodLiquidate, params, nil)
}

// SettleBorrow гасит quantity долга токена депозитом того же токена
func (c *LedgerClient) SettleBorrow(ctx context.Context, account *models.AccountSnapshot, token int, quantity decimal.Decimal) error {
	params := map[string]interface{}{
		"group":       c.group,
		"account":     account.Address,
		"owner":       c.liquidator,
		"token_index": token,
		"quantity":    quantity,
	}
	return c.rpc.write(ctx, methodSettleBorrow, params, nil)
}
