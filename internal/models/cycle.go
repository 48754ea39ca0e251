package models

import "time"

// CycleReport - итог одного цикла сканирования
type CycleReport struct {
	Cycle      int64         `json:"cycle"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Scanned    int           `json:"scanned"`    // счетов получено из леджера
	Flagged    int           `json:"flagged"`    // ниже maintenance ratio
	Liquidated int           `json:"liquidated"` // обработка завершена (DONE)
	Failed     int           `json:"failed"`     // ошибка загрузки, оценки или обработки
	Skipped    int           `json:"skipped"`    // отклонено леджером как устаревшее состояние
	Aborted    bool          `json:"aborted"`    // цикл прерван до обхода счетов
	Error      string        `json:"error,omitempty"`
}

// EngineStatus - состояние сканера для API
type EngineStatus struct {
	Running   bool         `json:"running"`
	DryRun    bool         `json:"dry_run"`
	Cycles    int64        `json:"cycles"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}
