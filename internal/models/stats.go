package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stats представляет агрегированную статистику ликвидаций
type Stats struct {
	TotalLiquidations   int             `json:"total_liquidations"`
	Done                int             `json:"done"`
	Failed              int             `json:"failed"`
	Aborted             int             `json:"aborted"`
	Undercollateralized int             `json:"undercollateralized"`
	TotalSeized         decimal.Decimal `json:"total_seized"` // сумма запрошенных изъятий в quote
	TodayLiquidations   int             `json:"today_liquidations"`
	LastLiquidationAt   *time.Time      `json:"last_liquidation_at,omitempty"`
}
