package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"liquidator/internal/api/handlers"
	"liquidator/internal/api/middleware"
	"liquidator/internal/service"
	"liquidator/internal/websocket"
	"liquidator/pkg/utils"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Engine        handlers.StatusProvider
	Liquidations  service.LiquidationServiceInterface
	Notifications service.NotificationServiceInterface
	Hub           *websocket.Hub
	Logger        *utils.Logger

	APIUser         string
	APIPasswordHash string // bcrypt; пусто = API без аутентификации
	AllowedOrigins  []string

	Cluster handlers.ClusterInfo
	Journal bool // журнал PostgreSQL подключен
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── GET /status - состояние сканера и итог последнего цикла
//	├── GET /liquidations - журнал ликвидаций (?account, ?limit)
//	├── GET /liquidations/{id} - одна ликвидация
//	├── GET /liquidations/{id}/orders - ордера ликвидации
//	├── GET /notifications - уведомления (?types, ?limit)
//	└── GET /stats - статистика
//
// /ws/stream - WebSocket для real-time событий
// /metrics - Prometheus, без аутентификации
// /health - проверка живости
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. BasicAuth (только /api/v1 и /ws)
func SetupRoutes(deps *Dependencies) *mux.Router {
	log := deps.Logger
	if log == nil {
		log = utils.NewNopLogger()
	}
	log = log.WithComponent("api")

	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	auth := middleware.BasicAuth(deps.APIUser, deps.APIPasswordHash)

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth)

	if deps.Engine != nil {
		statusHandler := handlers.NewStatusHandler(deps.Engine, deps.Cluster, deps.Journal)
		api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")
	}

	if deps.Liquidations != nil {
		liquidationHandler := handlers.NewLiquidationHandler(deps.Liquidations)
		api.HandleFunc("/liquidations", liquidationHandler.GetLiquidations).Methods("GET")
		api.HandleFunc("/liquidations/{id:[0-9]+}", liquidationHandler.GetLiquidation).Methods("GET")
		api.HandleFunc("/liquidations/{id:[0-9]+}/orders", liquidationHandler.GetOrders).Methods("GET")
		api.HandleFunc("/stats", liquidationHandler.GetStats).Methods("GET")
	}

	if deps.Notifications != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	}

	// WebSocket route
	if deps.Hub != nil {
		router.Handle("/ws/stream", auth(http.HandlerFunc(deps.Hub.ServeWS))).Methods("GET")
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
