package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OpenOrders - открытые ордера счёта: индекс рынка → идентификаторы ордеров
type OpenOrders map[int][]string

// Count возвращает общее количество открытых ордеров
func (o OpenOrders) Count() int {
	n := 0
	for _, ids := range o {
		n += len(ids)
	}
	return n
}

// AccountSnapshot - снимок маржинального счёта из леджера
//
// Deposits и Borrows имеют длину = числу токенов группы,
// последний слот - quote-актив. Снимок никогда не изменяется после
// получения: каждая фаза обработки запрашивает свежий снимок у леджера.
type AccountSnapshot struct {
	Address    string            `json:"address"`
	Owner      string            `json:"owner"`
	Deposits   []decimal.Decimal `json:"deposits"`
	Borrows    []decimal.Decimal `json:"borrows"`
	OpenOrders OpenOrders        `json:"open_orders,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// Validate проверяет форму векторов и неотрицательность значений
func (a *AccountSnapshot) Validate(numTokens int) error {
	if a == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if len(a.Deposits) != numTokens || len(a.Borrows) != numTokens {
		return fmt.Errorf("%w: account %s has %d deposits and %d borrows, want %d",
			ErrInvalidSnapshot, a.Address, len(a.Deposits), len(a.Borrows), numTokens)
	}
	for i := 0; i < numTokens; i++ {
		if a.Deposits[i].IsNegative() || a.Borrows[i].IsNegative() {
			return fmt.Errorf("%w: account %s has negative balance for token %d", ErrInvalidSnapshot, a.Address, i)
		}
	}
	return nil
}

// Net возвращает чистую позицию токена (deposit - borrow) в единицах токена
func (a *AccountSnapshot) Net(token int) decimal.Decimal {
	return a.Deposits[token].Sub(a.Borrows[token])
}

// HasOpenOrders проверяет наличие хотя бы одного открытого ордера
func (a *AccountSnapshot) HasOpenOrders() bool {
	return a.OpenOrders.Count() > 0
}

// WithOpenOrders возвращает копию снимка с заданными открытыми ордерами
func (a *AccountSnapshot) WithOpenOrders(orders OpenOrders) *AccountSnapshot {
	c := a.Clone()
	c.OpenOrders = orders
	return c
}

// Clone возвращает глубокую копию снимка
func (a *AccountSnapshot) Clone() *AccountSnapshot {
	c := &AccountSnapshot{
		Address:   a.Address,
		Owner:     a.Owner,
		Deposits:  append([]decimal.Decimal(nil), a.Deposits...),
		Borrows:   append([]decimal.Decimal(nil), a.Borrows...),
		FetchedAt: a.FetchedAt,
	}
	if a.OpenOrders != nil {
		c.OpenOrders = make(OpenOrders, len(a.OpenOrders))
		for m, ids := range a.OpenOrders {
			c.OpenOrders[m] = append([]string(nil), ids...)
		}
	}
	return c
}

// Pretty форматирует счёт для debug-логов
func (a *AccountSnapshot) Pretty(group *GroupState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "account %s owner %s:", a.Address, a.Owner)
	for i := range a.Deposits {
		fmt.Fprintf(&b, " %s[dep=%s bor=%s]", group.TokenSymbol(i), a.Deposits[i], a.Borrows[i])
	}

	if len(a.OpenOrders) > 0 {
		markets := make([]int, 0, len(a.OpenOrders))
		for m := range a.OpenOrders {
			markets = append(markets, m)
		}
		sort.Ints(markets)
		b.WriteString(" orders:")
		for _, m := range markets {
			fmt.Fprintf(&b, " m%d=%d", m, len(a.OpenOrders[m]))
		}
	}
	return b.String()
}
