package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"liquidator/internal/config"
	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// Engine - сканер маржинальных счетов (POLLING архитектура)
//
// Один логический воркер: счета обрабатываются строго по очереди,
// параллелизм только внутри шага (загрузка открытых ордеров, книг, отмены).
//
// Цикл:
// 1. Состояние группы и все счета
// 2. Цены один раз на цикл → MarketSnapshot (только чтение)
// 3. Открытые ордера всех счетов параллельно (не более SCAN_CONCURRENCY)
// 4. Оценка здоровья по порядку, помеченные счета → Remediator
//
// Сбой одного счёта изолирован. Сбой получения группы, счетов или цен
// прерывает цикл, повтор на следующем тике.
type Engine struct {
	cfg        config.LiquidatorConfig
	ledger     exchange.Ledger
	remediator *Remediator
	notifier   Notifier

	// WebSocket hub для отправки итогов цикла клиентам
	hub EventHub

	log *utils.Logger
	now func() time.Time

	cycles  atomic.Int64
	running atomic.Bool

	lastMu     sync.RWMutex
	lastReport *models.CycleReport
}

// EventHub - интерфейс для отправки данных клиентам
//
// Реализуется пакетом internal/websocket/Hub
type EventHub interface {
	// BroadcastCycle отправляет итог цикла сканирования
	BroadcastCycle(report *models.CycleReport)
}

// Dependencies - внешние зависимости движка
type Dependencies struct {
	Ledger   exchange.Ledger
	Venue    exchange.Venue
	Journal  Journal
	Notifier Notifier
	Hub      EventHub
	Logger   *utils.Logger
}

// NewEngine создаёт сканер и конвейер обработки счетов
func NewEngine(cfg config.LiquidatorConfig, deps Dependencies) *Engine {
	log := deps.Logger
	if log == nil {
		log = utils.L()
	}
	cfg = withDefaults(cfg)

	return &Engine{
		cfg:        cfg,
		ledger:     deps.Ledger,
		remediator: NewRemediator(cfg, deps.Ledger, deps.Venue, deps.Journal, deps.Notifier, log),
		notifier:   deps.Notifier,
		hub:        deps.Hub,
		log:        log.WithComponent("scanner"),
		now:        time.Now,
	}
}

// Run запускает цикл сканирования до отмены контекста
//
// Первый цикл выполняется сразу, далее пауза POLL_INTERVAL
// отсчитывается от конца предыдущего цикла.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)

	e.log.Info("scanner started",
		utils.Duration("poll_interval", e.cfg.PollInterval),
		utils.Bool("dry_run", e.cfg.DryRun),
	)

	for {
		// Ошибка цикла уже залогирована, следующий цикл повторит попытку
		_, _ = e.RunCycle(ctx)

		wait := time.NewTimer(e.cfg.PollInterval)
		select {
		case <-ctx.Done():
			wait.Stop()
			e.log.Info("scanner stopped")
			return ctx.Err()
		case <-wait.C:
		}
	}
}

// RunCycle выполняет один цикл сканирования
//
// Ошибка возвращается только если цикл прерван до обхода счетов.
func (e *Engine) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	report := &models.CycleReport{
		Cycle:     e.cycles.Add(1),
		StartedAt: e.now(),
	}
	log := e.log.WithCycle(report.Cycle)

	err := e.scan(ctx, report, log)
	report.Duration = e.now().Sub(report.StartedAt)
	if err != nil {
		report.Aborted = true
		report.Error = err.Error()
		log.Error("cycle aborted", utils.Err(err))
		if e.notifier != nil && ctx.Err() == nil {
			notifyEvent(ctx, e.notifier, e.cfg.CallTimeout, log, &models.Notification{
				Timestamp: e.now(),
				Type:      models.NotificationTypeCycleAborted,
				Severity:  models.SeverityWarn,
				Message:   fmt.Sprintf("Цикл %d прерван: %v", report.Cycle, err),
				Meta:      map[string]interface{}{"cycle": report.Cycle},
			})
		}
	} else {
		log.Info("cycle completed",
			utils.Int("scanned", report.Scanned),
			utils.Int("flagged", report.Flagged),
			utils.Int("liquidated", report.Liquidated),
			utils.Int("failed", report.Failed),
			utils.Int("skipped", report.Skipped),
			utils.Latency(utils.Millis(report.Duration)),
		)
	}

	RecordCycle(report.Scanned, report.Aborted, report.Duration)
	GoroutineCount.Set(float64(runtime.NumGoroutine()))

	e.lastMu.Lock()
	e.lastReport = report
	e.lastMu.Unlock()

	if e.hub != nil {
		e.hub.BroadcastCycle(report)
	}
	return report, err
}

// scan - тело цикла
func (e *Engine) scan(ctx context.Context, report *models.CycleReport, log *utils.Logger) error {
	group, accounts, snapshot, err := e.fetchState(ctx)
	if err != nil {
		return err
	}
	report.Scanned = len(accounts)

	orders := e.loadOpenOrders(ctx, accounts)

	for i, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if orders[i].err != nil {
			report.Failed++
			RecordAccountError("open_orders")
			log.Warn("open orders unavailable, account skipped",
				utils.Account(account.Address),
				utils.Err(orders[i].err),
			)
			continue
		}

		e.processAccount(ctx, report, log, account.WithOpenOrders(orders[i].orders), group, snapshot)
	}
	return nil
}

// fetchState получает общее состояние цикла, каждый вызов со своим дедлайном
func (e *Engine) fetchState(ctx context.Context) (*models.GroupState, []*models.AccountSnapshot, *models.MarketSnapshot, error) {
	var (
		group    *models.GroupState
		accounts []*models.AccountSnapshot
		snapshot *models.MarketSnapshot
	)

	err := e.call(ctx, func(ctx context.Context) (err error) {
		group, err = e.ledger.FetchGroupState(ctx)
		return err
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch group: %w", err)
	}
	if err := group.Validate(); err != nil {
		return nil, nil, nil, err
	}

	err = e.call(ctx, func(ctx context.Context) (err error) {
		accounts, err = e.ledger.FetchAllAccounts(ctx, group)
		return err
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch accounts: %w", err)
	}

	err = e.call(ctx, func(ctx context.Context) error {
		p, err := e.ledger.FetchPrices(ctx, group)
		if err != nil {
			return err
		}
		snapshot, err = models.NewMarketSnapshot(group, p, e.now())
		return err
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch prices: %w", err)
	}

	return group, accounts, snapshot, nil
}

// accountOrders - результат загрузки открытых ордеров одного счёта
type accountOrders struct {
	orders models.OpenOrders
	err    error
}

// loadOpenOrders загружает открытые ордера всех счетов параллельно
//
// Результаты по индексу счёта: порядок обхода не зависит от порядка ответов.
func (e *Engine) loadOpenOrders(ctx context.Context, accounts []*models.AccountSnapshot) []accountOrders {
	results := make([]accountOrders, len(accounts))

	var g errgroup.Group
	g.SetLimit(e.cfg.ScanConcurrency)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			results[i].err = e.call(ctx, func(ctx context.Context) (err error) {
				results[i].orders, err = e.ledger.LoadOpenOrders(ctx, account)
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// processAccount оценивает счёт и при необходимости запускает обработку
//
// Паника внутри обработки одного счёта не останавливает сканер.
func (e *Engine) processAccount(ctx context.Context, report *models.CycleReport, log *utils.Logger, account *models.AccountSnapshot, group *models.GroupState, snapshot *models.MarketSnapshot) {
	log = log.WithAccount(account.Address)

	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			RecordAccountError("panic")
			log.Error("panic during account processing",
				utils.Any("panic", r),
				utils.String("stack", stack()),
			)
		}
	}()

	health, err := Evaluate(account, group, snapshot)
	if err != nil {
		report.Failed++
		RecordAccountError("evaluate")
		log.Warn("account evaluation failed", utils.Err(err))
		return
	}
	if !health.Liquidatable {
		return
	}

	report.Flagged++
	RecordFlagged(health)
	e.announceFlagged(ctx, log, account, health)

	rec, err := e.remediator.Remediate(ctx, report.Cycle, account, group, snapshot, health)
	switch {
	case err == nil:
		if rec != nil && rec.Status == models.LiquidationStatusDone {
			report.Liquidated++
		}
	case exchange.IsStaleState(err):
		report.Skipped++
	case errors.Is(err, ErrNotLiquidatable):
		// оценка и расчёт дефицита разошлись, пропускаем
		report.Skipped++
	default:
		report.Failed++
		RecordAccountError("remediate")
	}
}

// announceFlagged логирует и рассылает уведомления о помеченном счёте
func (e *Engine) announceFlagged(ctx context.Context, log *utils.Logger, account *models.AccountSnapshot, h HealthMetric) {
	log.Info("account below maintenance ratio",
		utils.Owner(account.Owner),
		utils.Ratio(h.CollateralRatio),
		utils.Dec("assets", h.AssetsValue),
		utils.Dec("liabilities", h.LiabilitiesValue),
	)
	if h.Undercollateralized {
		log.Warn("account undercollateralized, protocol may take a loss",
			utils.Ratio(h.CollateralRatio),
		)
	}

	if e.notifier == nil {
		return
	}
	meta := map[string]interface{}{
		"ratio":       h.CollateralRatio.StringFixed(4),
		"assets":      h.AssetsValue.String(),
		"liabilities": h.LiabilitiesValue.String(),
	}
	notifyEvent(ctx, e.notifier, e.cfg.CallTimeout, log, &models.Notification{
		Timestamp: e.now(),
		Type:      models.NotificationTypeLiquidatable,
		Severity:  models.SeverityWarn,
		Account:   &account.Address,
		Message:   fmt.Sprintf("Счёт %s ниже maintenance ratio: %s", account.Address, h.CollateralRatio.StringFixed(4)),
		Meta:      meta,
	})
	if h.Undercollateralized {
		notifyEvent(ctx, e.notifier, e.cfg.CallTimeout, log, &models.Notification{
			Timestamp: e.now(),
			Type:      models.NotificationTypeUndercollateralized,
			Severity:  models.SeverityError,
			Account:   &account.Address,
			Message:   fmt.Sprintf("Активы счёта %s не покрывают долги: ratio %s", account.Address, h.CollateralRatio.StringFixed(4)),
			Meta:      meta,
		})
	}
}

// call выполняет удалённый вызов с дедлайном CALL_TIMEOUT
func (e *Engine) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

// Status возвращает состояние сканера для API
func (e *Engine) Status() models.EngineStatus {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()

	st := models.EngineStatus{
		Running: e.running.Load(),
		DryRun:  e.cfg.DryRun,
		Cycles:  e.cycles.Load(),
	}
	if e.lastReport != nil {
		last := *e.lastReport
		st.LastCycle = &last
	}
	return st
}

// withDefaults подставляет значения по умолчанию для нулевых интервалов
func withDefaults(cfg config.LiquidatorConfig) config.LiquidatorConfig {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.RemediationTimeout <= 0 {
		cfg.RemediationTimeout = 2 * time.Minute
	}
	if cfg.ScanConcurrency <= 0 {
		cfg.ScanConcurrency = 1
	}
	return cfg
}

func stack() string {
	buf := make([]byte, 4096)
	return string(buf[:runtime.Stack(buf, false)])
}
