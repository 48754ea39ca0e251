package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"liquidator/internal/models"
	"liquidator/internal/service"
)

// LiquidationHandler отвечает за чтение журнала ликвидаций
//
// Endpoints:
// - GET /api/v1/liquidations?account=...&limit=50
// - GET /api/v1/liquidations/{id}
// - GET /api/v1/liquidations/{id}/orders
// - GET /api/v1/stats
type LiquidationHandler struct {
	liquidationService service.LiquidationServiceInterface
}

// NewLiquidationHandler создает новый LiquidationHandler с внедрением зависимости
func NewLiquidationHandler(liquidationService service.LiquidationServiceInterface) *LiquidationHandler {
	return &LiquidationHandler{liquidationService: liquidationService}
}

// GetLiquidationsResponse представляет ответ списка записей
type GetLiquidationsResponse struct {
	Liquidations []*models.LiquidationRecord `json:"liquidations"`
	Total        int                         `json:"total"`
}

// GetOrdersResponse представляет ответ списка ордеров записи
type GetOrdersResponse struct {
	LiquidationID int64                 `json:"liquidation_id"`
	Orders        []*models.OrderRecord `json:"orders"`
}

// GetLiquidations возвращает последние записи журнала
//
// GET /api/v1/liquidations
//
// Query параметры:
// - account (string): только записи указанного счёта
// - limit (int): количество записей (по умолчанию 100, максимум 500)
func (h *LiquidationHandler) GetLiquidations(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	limit := parseLimit(r, 100)

	records, err := h.liquidationService.GetLiquidations(r.Context(), account, limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if records == nil {
		records = []*models.LiquidationRecord{}
	}

	respondWithJSON(w, http.StatusOK, GetLiquidationsResponse{
		Liquidations: records,
		Total:        len(records),
	})
}

// GetLiquidation возвращает запись по ID
//
// GET /api/v1/liquidations/{id}
//
// HTTP коды:
// - 200 OK
// - 400 Bad Request: некорректный ID
// - 404 Not Found: запись не найдена
// - 503 Service Unavailable: журнал выключен
func (h *LiquidationHandler) GetLiquidation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.liquidationService.GetLiquidation(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

// GetOrders возвращает ордера ребалансировки записи
//
// GET /api/v1/liquidations/{id}/orders
func (h *LiquidationHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	orders, err := h.liquidationService.GetOrders(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []*models.OrderRecord{}
	}

	respondWithJSON(w, http.StatusOK, GetOrdersResponse{LiquidationID: id, Orders: orders})
}

// GetStats возвращает агрегаты журнала
//
// GET /api/v1/stats
func (h *LiquidationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.liquidationService.GetStats(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, CodeBadRequest, "invalid liquidation id")
		return 0, false
	}
	return id, true
}
