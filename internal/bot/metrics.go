package bot

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"liquidator/internal/exchange"
	"liquidator/pkg/utils"
)

// ============================================================
// Prometheus метрики ликвидатора
// ============================================================
//
// Экспортируются через /metrics (internal/api).
// Все значения в quote конвертируются во float только здесь.

// ============ Метрики цикла ============

// CycleDuration - длительность цикла сканирования
var CycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "liquidator",
		Subsystem: "scanner",
		Name:      "cycle_duration_ms",
		Help:      "Scan cycle duration in milliseconds",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
)

// CyclesTotal - количество циклов по результату
var CyclesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "scanner",
		Name:      "cycles_total",
		Help:      "Total number of scan cycles",
	},
	[]string{"result"}, // ok, aborted
)

// AccountsScanned - счетов в последнем цикле
var AccountsScanned = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "liquidator",
		Subsystem: "scanner",
		Name:      "accounts_scanned",
		Help:      "Number of margin accounts fetched in the last cycle",
	},
)

// AccountsFlagged - помеченные счета
var AccountsFlagged = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "scanner",
		Name:      "accounts_flagged_total",
		Help:      "Number of accounts found below a collateral threshold",
	},
	[]string{"kind"}, // liquidatable, undercollateralized
)

// AccountErrors - ошибки обработки отдельных счетов
var AccountErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "scanner",
		Name:      "account_errors_total",
		Help:      "Per-account failures isolated from the cycle",
	},
	[]string{"stage"}, // open_orders, evaluate, remediate, panic
)

// ============ Метрики ликвидаций ============

// LiquidationsTotal - завершённые попытки ликвидации по статусу
var LiquidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "remediation",
		Name:      "liquidations_total",
		Help:      "Total number of liquidation attempts by final status",
	},
	[]string{"status"}, // done, failed, aborted, dry_run
)

// PhaseDuration - длительность фаз обработки
var PhaseDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "liquidator",
		Subsystem: "remediation",
		Name:      "phase_duration_ms",
		Help:      "Duration of a remediation phase in milliseconds",
		Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 30000},
	},
	[]string{"phase", "result"},
)

// SeizedQuoteTotal - сумма запрошенных изъятий в quote
var SeizedQuoteTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "remediation",
		Name:      "seized_quote_total",
		Help:      "Total quote amount requested in successful seizures",
	},
)

// OrdersTotal - ордера ребалансировки
var OrdersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "remediation",
		Name:      "orders_total",
		Help:      "Rebalancing orders by side and result",
	},
	[]string{"side", "result"}, // result: placed, rejected, planned
)

// ============ Метрики шлюза ============

// RPCLatency - латентность вызовов шлюза
var RPCLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "liquidator",
		Subsystem: "gateway",
		Name:      "rpc_latency_ms",
		Help:      "Gateway JSON-RPC call latency in milliseconds",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"service", "method"},
)

// RPCErrors - ошибки вызовов шлюза по коду
var RPCErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "gateway",
		Name:      "rpc_errors_total",
		Help:      "Gateway JSON-RPC call errors",
	},
	[]string{"service", "method", "code"},
)

// ============ Метрики производительности ============

// GoroutineCount - количество горутин
var GoroutineCount = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "liquidator",
		Subsystem: "runtime",
		Name:      "goroutines",
		Help:      "Current number of goroutines",
	},
)

// ============ Вспомогательные функции ============

// RecordCycle записывает итог цикла
func RecordCycle(scanned int, aborted bool, d time.Duration) {
	CycleDuration.Observe(utils.Millis(d))
	if aborted {
		CyclesTotal.WithLabelValues("aborted").Inc()
		return
	}
	CyclesTotal.WithLabelValues("ok").Inc()
	AccountsScanned.Set(float64(scanned))
}

// RecordFlagged записывает помеченный счёт
func RecordFlagged(h HealthMetric) {
	AccountsFlagged.WithLabelValues("liquidatable").Inc()
	if h.Undercollateralized {
		AccountsFlagged.WithLabelValues("undercollateralized").Inc()
	}
}

// RecordAccountError записывает изолированную ошибку счёта
func RecordAccountError(stage string) {
	AccountErrors.WithLabelValues(stage).Inc()
}

// RecordPhase записывает длительность фазы
func RecordPhase(phase string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PhaseDuration.WithLabelValues(phase, result).Observe(utils.Millis(d))
}

// RecordLiquidation записывает завершённую попытку
func RecordLiquidation(status string) {
	LiquidationsTotal.WithLabelValues(status).Inc()
}

// RecordSeized добавляет изъятую сумму
func RecordSeized(amount float64) {
	if amount > 0 {
		SeizedQuoteTotal.Add(amount)
	}
}

// RecordOrder записывает ордер ребалансировки
func RecordOrder(side, result string) {
	OrdersTotal.WithLabelValues(side, result).Inc()
}

// RecordRPCCall записывает вызов шлюза (совместим с exchange.CallObserver)
func RecordRPCCall(service, method string, d time.Duration, err error) {
	RPCLatency.WithLabelValues(service, method).Observe(utils.Millis(d))
	if err != nil {
		RPCErrors.WithLabelValues(service, method, rpcErrorCode(err)).Inc()
	}
}

var _ exchange.CallObserver = RecordRPCCall

// rpcErrorCode сводит ошибку к метке с ограниченным набором значений
func rpcErrorCode(err error) string {
	var exErr *exchange.ExchangeError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &exErr):
		if exErr.Status >= 500 {
			return "5xx"
		}
		return exErr.Code
	default:
		return "error"
	}
}
