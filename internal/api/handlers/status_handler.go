package handlers

import (
	"net/http"
	"time"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// StatusProvider - источник состояния сканера (bot.Engine)
type StatusProvider interface {
	Status() models.EngineStatus
}

// ClusterInfo - на каком кластере и группе работает агент
type ClusterInfo struct {
	Cluster    string `json:"cluster"`
	Group      string `json:"group"`
	GroupKey   string `json:"group_address"`
	Liquidator string `json:"liquidator"` // публичный ключ
}

// StatusHandler отвечает на GET /api/v1/status
type StatusHandler struct {
	engine    StatusProvider
	cluster   ClusterInfo
	journal   bool
	startedAt time.Time
}

// NewStatusHandler создает StatusHandler
func NewStatusHandler(engine StatusProvider, cluster ClusterInfo, journal bool) *StatusHandler {
	return &StatusHandler{
		engine:    engine,
		cluster:   cluster,
		journal:   journal,
		startedAt: time.Now(),
	}
}

// StatusResponse представляет ответ статуса
type StatusResponse struct {
	models.EngineStatus
	ClusterInfo
	Journal bool   `json:"journal"`
	Uptime  string `json:"uptime"`
}

// GetStatus возвращает состояние сканера и итог последнего цикла
//
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, StatusResponse{
		EngineStatus: h.engine.Status(),
		ClusterInfo:  h.cluster,
		Journal:      h.journal,
		Uptime:       utils.FormatDuration(time.Since(h.startedAt)),
	})
}
