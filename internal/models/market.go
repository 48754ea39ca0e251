package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ошибки валидации состояния группы и снимков
var (
	ErrInvalidGroup    = errors.New("invalid group state")
	ErrInvalidSnapshot = errors.New("invalid account snapshot")
	ErrPriceMismatch   = errors.New("price vector does not match token count")
)

// Market - спот-рынок площадки, торгуемый против quote-актива
type Market struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`       // например BTC/USDC
	Address   string `json:"address"`    // адрес рынка на площадке
	BaseToken int    `json:"base_token"` // индекс базового токена в векторе балансов
}

// GroupState - конфигурация группы маржинальных счетов
//
// Tokens содержит символы всех поддерживаемых токенов,
// последний слот всегда зарезервирован под quote-актив.
type GroupState struct {
	Address        string          `json:"address"`
	Tokens         []string        `json:"tokens"`
	Markets        []Market        `json:"markets"`
	MaintCollRatio decimal.Decimal `json:"maint_coll_ratio"`
	InitCollRatio  decimal.Decimal `json:"init_coll_ratio"`
}

// NumTokens возвращает количество токенов группы (включая quote)
func (g *GroupState) NumTokens() int {
	return len(g.Tokens)
}

// QuoteIndex возвращает индекс quote-актива
func (g *GroupState) QuoteIndex() int {
	return len(g.Tokens) - 1
}

// TokenSymbol возвращает символ токена или его индекс если символ неизвестен
func (g *GroupState) TokenSymbol(token int) string {
	if token >= 0 && token < len(g.Tokens) {
		return g.Tokens[token]
	}
	return fmt.Sprintf("token#%d", token)
}

// Validate проверяет согласованность конфигурации группы
func (g *GroupState) Validate() error {
	if len(g.Tokens) < 2 {
		return fmt.Errorf("%w: need at least one base token and the quote token, got %d", ErrInvalidGroup, len(g.Tokens))
	}
	if len(g.Markets) != len(g.Tokens)-1 {
		return fmt.Errorf("%w: %d markets for %d tokens", ErrInvalidGroup, len(g.Markets), len(g.Tokens))
	}
	for i, m := range g.Markets {
		if m.BaseToken < 0 || m.BaseToken >= g.QuoteIndex() {
			return fmt.Errorf("%w: market %d has base token %d outside non-quote range", ErrInvalidGroup, i, m.BaseToken)
		}
	}
	if !g.MaintCollRatio.IsPositive() || !g.InitCollRatio.IsPositive() {
		return fmt.Errorf("%w: collateral ratios must be positive", ErrInvalidGroup)
	}
	if g.InitCollRatio.LessThan(g.MaintCollRatio) {
		return fmt.Errorf("%w: init ratio %s below maintenance ratio %s", ErrInvalidGroup, g.InitCollRatio, g.MaintCollRatio)
	}
	return nil
}

// MarketSnapshot - цены и рынки на один цикл сканирования
//
// Создаётся один раз в начале цикла и дальше только читается.
// Все аксессоры возвращают копии, поэтому шаги обработки счёта
// не могут изменить общий снимок.
type MarketSnapshot struct {
	markets []Market
	prices  []decimal.Decimal
	takenAt time.Time
}

// NewMarketSnapshot создаёт снимок из конфигурации группы и вектора цен
//
// prices должен содержать по одной цене на каждый токен группы (включая quote).
func NewMarketSnapshot(group *GroupState, prices []decimal.Decimal, takenAt time.Time) (*MarketSnapshot, error) {
	if group == nil {
		return nil, fmt.Errorf("%w: nil group", ErrInvalidGroup)
	}
	if len(prices) != group.NumTokens() {
		return nil, fmt.Errorf("%w: got %d prices for %d tokens", ErrPriceMismatch, len(prices), group.NumTokens())
	}
	for i, p := range prices {
		if p.IsNegative() {
			return nil, fmt.Errorf("%w: negative price %s for token %d", ErrPriceMismatch, p, i)
		}
	}

	markets := make([]Market, len(group.Markets))
	copy(markets, group.Markets)
	pricesCopy := make([]decimal.Decimal, len(prices))
	copy(pricesCopy, prices)

	return &MarketSnapshot{
		markets: markets,
		prices:  pricesCopy,
		takenAt: takenAt,
	}, nil
}

// NumMarkets возвращает количество рынков
func (s *MarketSnapshot) NumMarkets() int {
	return len(s.markets)
}

// NumTokens возвращает количество токенов (рынки + quote)
func (s *MarketSnapshot) NumTokens() int {
	return len(s.prices)
}

// Markets возвращает копию списка рынков
func (s *MarketSnapshot) Markets() []Market {
	out := make([]Market, len(s.markets))
	copy(out, s.markets)
	return out
}

// Market возвращает рынок по индексу
func (s *MarketSnapshot) Market(i int) Market {
	return s.markets[i]
}

// MarketForToken находит рынок, на котором торгуется базовый токен
func (s *MarketSnapshot) MarketForToken(token int) (Market, bool) {
	for _, m := range s.markets {
		if m.BaseToken == token {
			return m, true
		}
	}
	return Market{}, false
}

// Price возвращает оракульную цену токена в quote
func (s *MarketSnapshot) Price(token int) decimal.Decimal {
	return s.prices[token]
}

// Prices возвращает копию вектора цен
func (s *MarketSnapshot) Prices() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.prices))
	copy(out, s.prices)
	return out
}

// TakenAt возвращает время получения цен
func (s *MarketSnapshot) TakenAt() time.Time {
	return s.takenAt
}
