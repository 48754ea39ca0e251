package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidationRecord - запись журнала об одной попытке ликвидации счёта
//
// Журнал только пишется: решения о ликвидации всегда принимаются
// по свежему состоянию леджера, а не по записям журнала.
type LiquidationRecord struct {
	ID                  int64           `json:"id" db:"id"`
	Cycle               int64           `json:"cycle" db:"cycle"`
	Account             string          `json:"account" db:"account"`
	Owner               string          `json:"owner" db:"owner"`
	Phase               string          `json:"phase" db:"phase"`   // DONE, FAILED; PENDING для dry_run
	Status              string          `json:"status" db:"status"` // done, failed, aborted, dry_run
	AssetsValue         decimal.Decimal `json:"assets_value" db:"assets_value"`
	LiabilitiesValue    decimal.Decimal `json:"liabilities_value" db:"liabilities_value"`
	CollateralRatio     decimal.Decimal `json:"collateral_ratio" db:"collateral_ratio"`
	Deficit             decimal.Decimal `json:"deficit" db:"deficit"`
	SeizeAmount         decimal.Decimal `json:"seize_amount" db:"seize_amount"`
	Undercollateralized bool            `json:"undercollateralized" db:"undercollateralized"`
	ErrorMessage        string          `json:"error_message,omitempty" db:"error_message"`
	StartedAt           time.Time       `json:"started_at" db:"started_at"`
	FinishedAt          *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}

// Статусы попытки ликвидации
const (
	LiquidationStatusDone    = "done"    // все фазы выполнены
	LiquidationStatusFailed  = "failed"  // ошибка после успешного изъятия, счёт в промежуточном состоянии
	LiquidationStatusAborted = "aborted" // изъятие не выполнено (устаревшее состояние, нехватка средств)
	LiquidationStatusDryRun  = "dry_run" // только расчёт, без записи в леджер
)

// Фазы обработки счёта (state machine)
const (
	PhasePending     = "PENDING"      // счёт помечен, обработка не начата
	PhaseSeizing     = "SEIZING"      // изъятие залога
	PhaseUnwinding   = "UNWINDING"    // отмена открытых ордеров
	PhaseSettling    = "SETTLING"     // расчёт после отмены ордеров
	PhaseRebalancing = "REBALANCING"  // закрытие позиций в не-quote активах
	PhaseFinalSettle = "FINAL_SETTLE" // расчёт после ребалансировки
	PhaseDone        = "DONE"         // обработка завершена
	PhaseFailed      = "FAILED"       // обработка прервана
)
