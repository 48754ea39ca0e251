package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int64                  `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // LIQUIDATABLE, UNDERCOLLATERALIZED, SEIZED, REMEDIATED, ...
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	Account   *string                `json:"account,omitempty" db:"account"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeLiquidatable        = "LIQUIDATABLE"        // счёт ниже maintenance ratio
	NotificationTypeUndercollateralized = "UNDERCOLLATERALIZED" // ratio < 1, протокол может понести убыток
	NotificationTypeSeized              = "SEIZED"              // залог изъят
	NotificationTypeRemediated          = "REMEDIATED"          // позиции счёта закрыты
	NotificationTypeRemediationFailed   = "REMEDIATION_FAILED"  // обработка прервана после изъятия
	NotificationTypeStaleState          = "STALE_STATE"         // леджер отклонил ликвидацию
	NotificationTypeCycleAborted        = "CYCLE_ABORTED"       // не удалось получить общее состояние
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
