package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
)

// Ledger - доступ к состоянию протокола маржинального кредитования
//
// Каждый вызов возвращает свежие данные; кешированием занимается вызывающая сторона.
type Ledger interface {
	// FetchGroupState получает конфигурацию группы (токены, рынки, коэффициенты)
	FetchGroupState(ctx context.Context) (*models.GroupState, error)

	// FetchAllAccounts получает все маржинальные счета группы
	FetchAllAccounts(ctx context.Context, group *models.GroupState) ([]*models.AccountSnapshot, error)

	// FetchAccount получает один счёт
	FetchAccount(ctx context.Context, address string) (*models.AccountSnapshot, error)

	// FetchPrices получает оракульные цены: по одной на токен, последняя - quote
	FetchPrices(ctx context.Context, group *models.GroupState) ([]decimal.Decimal, error)

	// LoadOpenOrders получает открытые ордера счёта по рынкам
	LoadOpenOrders(ctx context.Context, account *models.AccountSnapshot) (models.OpenOrders, error)

	// SeizeCollateral вносит quoteAmount quote-актива и забирает счёт под контроль ликвидатора
	SeizeCollateral(ctx context.Context, account *models.AccountSnapshot, quoteAmount decimal.Decimal) error

	// SettleBorrow гасит долг токена за счёт депозита того же токена
	SettleBorrow(ctx context.Context, account *models.AccountSnapshot, token int, quantity decimal.Decimal) error
}

// Venue - спотовая площадка с книгами ордеров
type Venue interface {
	// LoadBook загружает обе стороны книги рынка
	LoadBook(ctx context.Context, market models.Market) (*OrderBook, error)

	// CancelOrders отменяет ордера счёта, присутствующие в книге
	CancelOrders(ctx context.Context, market models.Market, book *OrderBook, account *models.AccountSnapshot, orderIDs []string) error

	// PlaceOrder выставляет ордер и возвращает его идентификатор на площадке
	PlaceOrder(ctx context.Context, account *models.AccountSnapshot, market models.Market, side Side, price, size decimal.Decimal, orderType OrderType) (string, error)

	// Settle переводит исполненные средства с площадки обратно на счёт
	Settle(ctx context.Context, account *models.AccountSnapshot, markets []models.Market) error
}

// OrderBook - снимок книги ордеров рынка
type OrderBook struct {
	Market   string       `json:"market"`
	Bids     []PriceLevel `json:"bids"`
	Asks     []PriceLevel `json:"asks"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// PriceLevel - ордер в книге
type PriceLevel struct {
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	OrderID string          `json:"order_id"`
	Owner   string          `json:"owner"`
}

// Contains проверяет, есть ли ордер в любой стороне книги
func (b *OrderBook) Contains(orderID string) bool {
	if b == nil {
		return false
	}
	for _, lvl := range b.Bids {
		if lvl.OrderID == orderID {
			return true
		}
	}
	for _, lvl := range b.Asks {
		if lvl.OrderID == orderID {
			return true
		}
	}
	return false
}

// Side - направление ордера
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType - тип ордера на площадке
type OrderType string

const (
	OrderTypeLimit    OrderType = "limit"
	OrderTypeIOC      OrderType = "ioc"
	OrderTypePostOnly OrderType = "postOnly"
)

// ============================================================
// Ошибки
// ============================================================

// ErrStaleState - шлюз отклонил операцию, потому что состояние счёта уже изменилось
// (счёт здоров, уже ликвидирован или цена устарела)
var ErrStaleState = errors.New("stale ledger state")

// Коды отказов шлюза, означающие устаревшее состояние
const (
	ReasonAccountHealthy    = "ACCOUNT_HEALTHY"
	ReasonAlreadyLiquidated = "ALREADY_LIQUIDATED"
	ReasonStalePrice        = "STALE_PRICE"
)

// Код ошибки транспорта (нет ответа от шлюза)
const CodeTransport = "TRANSPORT"

// ExchangeError - ошибка вызова ledger или venue
type ExchangeError struct {
	Service  string // ledger или venue
	Method   string
	Code     string
	Status   int // HTTP статус, 0 если ответа не было
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s.%s: [%s] %s", e.Service, e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Method, e.Message)
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Retryable: транспортные сбои, 5xx и 429 повторяемы, отказы по состоянию - нет
func (e *ExchangeError) Retryable() bool {
	if errors.Is(e.Original, ErrStaleState) {
		return false
	}
	if e.Code == CodeTransport {
		return true
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// IsStaleState - сокращение для errors.Is(err, ErrStaleState)
func IsStaleState(err error) bool {
	return errors.Is(err, ErrStaleState)
}
