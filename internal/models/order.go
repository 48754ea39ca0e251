package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRecord представляет запись об ордере ребалансировки
type OrderRecord struct {
	ID            int64           `json:"id" db:"id"`
	LiquidationID int64           `json:"liquidation_id" db:"liquidation_id"`
	Market        string          `json:"market" db:"market"`
	TokenIndex    int             `json:"token_index" db:"token_index"`
	Side          string          `json:"side" db:"side"` // buy, sell
	Type          string          `json:"type" db:"type"` // limit
	Price         decimal.Decimal `json:"price" db:"price"`
	Size          decimal.Decimal `json:"size" db:"size"`
	NetValue      decimal.Decimal `json:"net_value" db:"net_value"` // чистая позиция в quote на момент планирования
	VenueOrderID  string          `json:"venue_order_id,omitempty" db:"venue_order_id"`
	Status        string          `json:"status" db:"status"` // placed, rejected, planned
	ErrorMessage  string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Статусы ордера
const (
	OrderStatusPlaced   = "placed"
	OrderStatusRejected = "rejected"
	OrderStatusPlanned  = "planned" // режим DRY_RUN, ордер не отправлялся
)
