package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"liquidator/internal/config"
	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// Journal - аудит попыток ликвидации
//
// Реализуется internal/service.LiquidationService. Журнал только пишется,
// решения принимаются по свежему состоянию леджера.
type Journal interface {
	RecordLiquidation(ctx context.Context, rec *models.LiquidationRecord, orders []*models.OrderRecord) error
}

// Notifier - доставка уведомлений (БД + WebSocket)
//
// Реализуется internal/service.NotificationService.
type Notifier interface {
	Notify(ctx context.Context, notif *models.Notification) error
}

// Remediator проводит помеченный счёт через все фазы:
// SEIZING → UNWINDING → SETTLING → REBALANCING → FINAL_SETTLE
//
// Повторный вход безопасен: каждая фаза работает по свежему снимку
// из леджера, промежуточное состояние нигде не сохраняется.
type Remediator struct {
	cfg        config.LiquidatorConfig
	ledger     exchange.Ledger
	liquidator *Liquidator
	unwinder   *Unwinder
	settler    *Settler
	rebalancer *Rebalancer
	journal    Journal
	notifier   Notifier
	log        *utils.Logger
	now        func() time.Time
}

// NewRemediator создаёт Remediator и исполнителей фаз
func NewRemediator(cfg config.LiquidatorConfig, ledger exchange.Ledger, venue exchange.Venue, journal Journal, notifier Notifier, log *utils.Logger) *Remediator {
	if log == nil {
		log = utils.L()
	}
	cfg = withDefaults(cfg)
	return &Remediator{
		cfg:        cfg,
		ledger:     ledger,
		liquidator: NewLiquidator(ledger, cfg.SafetyBufferPct, log),
		unwinder:   NewUnwinder(venue, log),
		settler:    NewSettler(ledger, venue, cfg.SettleBorrows, log),
		rebalancer: NewRebalancer(venue, cfg.SellSlippagePct, cfg.BuySlippagePct, log),
		journal:    journal,
		notifier:   notifier,
		log:        log.WithComponent("remediator"),
		now:        time.Now,
	}
}

// remediation - состояние одной обработки счёта
type remediation struct {
	cycle    int64
	account  *models.AccountSnapshot
	group    *models.GroupState
	market   *models.MarketSnapshot
	rec      *models.LiquidationRecord
	orders   []*models.OrderRecord
	failedAt string // первая упавшая фаза
	log      *utils.Logger
}

// transition переводит обработку в следующую фазу
func (rm *remediation) transition(to string) error {
	if !CanTransition(rm.rec.Phase, to) {
		return fmt.Errorf("invalid phase transition %s → %s", rm.rec.Phase, to)
	}
	rm.rec.Phase = to
	rm.log.Debug("phase", utils.Phase(to))
	return nil
}

// Remediate обрабатывает счёт с метрикой health
//
// Здоровый счёт возвращает ErrNotLiquidatable без обращений к леджеру.
// Возвращённая запись уже отправлена в журнал.
func (r *Remediator) Remediate(ctx context.Context, cycle int64, account *models.AccountSnapshot, group *models.GroupState, snapshot *models.MarketSnapshot, health HealthMetric) (*models.LiquidationRecord, error) {
	deficit, err := Deficit(health, group)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RemediationTimeout)
	defer cancel()

	rm := &remediation{
		cycle:   cycle,
		account: account,
		group:   group,
		market:  snapshot,
		rec: &models.LiquidationRecord{
			Cycle:               cycle,
			Account:             account.Address,
			Owner:               account.Owner,
			Phase:               models.PhasePending,
			AssetsValue:         health.AssetsValue,
			LiabilitiesValue:    health.LiabilitiesValue,
			CollateralRatio:     health.CollateralRatio,
			Deficit:             deficit.Value,
			SeizeAmount:         r.liquidator.SeizeAmount(deficit),
			Undercollateralized: health.Undercollateralized,
			StartedAt:           r.now(),
		},
		log: r.log.WithAccount(account.Address).WithCycle(cycle),
	}
	rm.log.Debug("before remediation", utils.String("dump", account.Pretty(group)))

	if r.cfg.DryRun {
		return r.dryRun(ctx, rm)
	}

	err = r.run(ctx, rm, deficit)
	r.finish(ctx, rm, err)
	return rm.rec, err
}

// run выполняет фазы по порядку
func (r *Remediator) run(ctx context.Context, rm *remediation, deficit LiquidationDeficit) error {
	markets := rm.market.Markets()

	// SEIZING
	if err := rm.transition(models.PhaseSeizing); err != nil {
		return err
	}
	var account *models.AccountSnapshot
	err := r.phase(ctx, rm, func(ctx context.Context) (err error) {
		account, err = r.liquidator.Liquidate(ctx, rm.account, deficit)
		return err
	})
	if err != nil {
		return err
	}
	RecordSeized(utils.ToFloat(rm.rec.SeizeAmount))
	r.notify(ctx, rm, models.NotificationTypeSeized, models.SeverityInfo,
		fmt.Sprintf("Изъято %s quote со счёта %s", rm.rec.SeizeAmount.StringFixed(2), rm.account.Address), nil)

	// UNWINDING
	if err := rm.transition(models.PhaseUnwinding); err != nil {
		return err
	}
	err = r.phase(ctx, rm, func(ctx context.Context) error {
		orders, err := r.ledger.LoadOpenOrders(ctx, account)
		if err != nil {
			return fmt.Errorf("load open orders: %w", err)
		}
		return r.unwinder.CancelAllOpenOrders(ctx, account.WithOpenOrders(orders), markets)
	})
	if err != nil {
		return err
	}

	// SETTLING
	if err := rm.transition(models.PhaseSettling); err != nil {
		return err
	}
	err = r.phase(ctx, rm, func(ctx context.Context) (err error) {
		account, err = r.settler.SettleAll(ctx, account, markets)
		return err
	})
	if err != nil {
		return err
	}

	// REBALANCING
	if err := rm.transition(models.PhaseRebalancing); err != nil {
		return err
	}
	// Исполненные ноги забираем финальным расчётом даже после отказа
	rebalanceErr := r.phase(ctx, rm, func(ctx context.Context) error {
		placed, err := r.rebalancer.Execute(ctx, account, rm.market)
		rm.orders = append(rm.orders, r.orderRecords(placed)...)
		return err
	})

	// FINAL_SETTLE
	if err := rm.transition(models.PhaseFinalSettle); err != nil {
		return errors.Join(rebalanceErr, err)
	}
	err = r.phase(ctx, rm, func(ctx context.Context) (err error) {
		account, err = r.settler.SettleAll(ctx, account, markets)
		return err
	})
	if rebalanceErr != nil {
		return errors.Join(rebalanceErr, err)
	}
	if err != nil {
		return err
	}

	rm.log.Debug("after remediation", utils.String("dump", account.Pretty(rm.group)))
	return rm.transition(models.PhaseDone)
}

// phase выполняет шаг с дедлайном CALL_TIMEOUT
func (r *Remediator) phase(ctx context.Context, rm *remediation, fn func(ctx context.Context) error) error {
	phaseCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(phaseCtx)
	RecordPhase(rm.rec.Phase, time.Since(start), err)
	if err != nil {
		if rm.failedAt == "" {
			rm.failedAt = rm.rec.Phase
		}
		return fmt.Errorf("%s: %w", rm.rec.Phase, err)
	}
	return nil
}

// finish проставляет статус, пишет журнал и уведомления
func (r *Remediator) finish(ctx context.Context, rm *remediation, err error) {
	finished := r.now()
	rm.rec.FinishedAt = &finished

	failedAt := rm.failedAt
	if failedAt == "" {
		failedAt = rm.rec.Phase
	}
	if err != nil && !IsTerminal(failedAt) {
		_ = rm.transition(models.PhaseFailed)
	}

	switch {
	case err == nil:
		rm.rec.Status = models.LiquidationStatusDone
		rm.log.Info("account remediated",
			utils.Amount(rm.rec.SeizeAmount),
			utils.Int("orders", len(rm.orders)),
		)
		r.notify(ctx, rm, models.NotificationTypeRemediated, models.SeverityInfo,
			fmt.Sprintf("Счёт %s ликвидирован, позиции закрыты", rm.account.Address), nil)

	case failedAt == models.PhaseSeizing && errors.Is(err, ErrSeizeFailed):
		// До изъятия счёт не тронут
		rm.rec.Status = models.LiquidationStatusAborted
		rm.rec.ErrorMessage = err.Error()
		if exchange.IsStaleState(err) {
			rm.log.Warn("seize rejected as stale", utils.Err(err))
			r.notify(ctx, rm, models.NotificationTypeStaleState, models.SeverityWarn,
				fmt.Sprintf("Леджер отклонил ликвидацию %s: состояние устарело", rm.account.Address), nil)
		} else {
			rm.log.Error("seize failed", utils.Err(err))
		}

	default:
		rm.rec.Status = models.LiquidationStatusFailed
		rm.rec.ErrorMessage = err.Error()
		rm.log.Error("remediation failed, account left in intermediate state",
			utils.Phase(failedAt),
			utils.Err(err),
		)
		r.notify(ctx, rm, models.NotificationTypeRemediationFailed, models.SeverityError,
			fmt.Sprintf("Обработка %s прервана на фазе %s", rm.account.Address, failedAt),
			map[string]interface{}{"phase": failedAt, "error": err.Error()})
	}

	RecordLiquidation(rm.rec.Status)
	r.record(ctx, rm)
}

// dryRun только планирует: без изъятия и ордеров
func (r *Remediator) dryRun(ctx context.Context, rm *remediation) (*models.LiquidationRecord, error) {
	for _, intent := range r.rebalancer.Plan(rm.account, rm.market) {
		rm.orders = append(rm.orders, r.orderRecord(intent, "", nil, models.OrderStatusPlanned))
		RecordOrder(string(intent.Side), models.OrderStatusPlanned)
	}

	finished := r.now()
	rm.rec.Status = models.LiquidationStatusDryRun
	rm.rec.FinishedAt = &finished
	rm.log.Info("dry run: account would be liquidated",
		utils.Amount(rm.rec.SeizeAmount),
		utils.Int("orders", len(rm.orders)),
	)

	RecordLiquidation(rm.rec.Status)
	r.record(ctx, rm)
	return rm.rec, nil
}

// record пишет журнал даже если контекст обработки истёк
func (r *Remediator) record(ctx context.Context, rm *remediation) {
	if r.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CallTimeout)
	defer cancel()

	if err := r.journal.RecordLiquidation(jctx, rm.rec, rm.orders); err != nil {
		rm.log.Error("journal write failed", utils.Err(err))
	}
}

func (r *Remediator) notify(ctx context.Context, rm *remediation, typ, severity, msg string, meta map[string]interface{}) {
	if r.notifier == nil {
		return
	}
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["cycle"] = rm.cycle

	notifyEvent(ctx, r.notifier, r.cfg.CallTimeout, rm.log, &models.Notification{
		Timestamp: r.now(),
		Type:      typ,
		Severity:  severity,
		Account:   &rm.account.Address,
		Message:   msg,
		Meta:      meta,
	})
}

func (r *Remediator) orderRecords(placed []PlacedOrder) []*models.OrderRecord {
	out := make([]*models.OrderRecord, 0, len(placed))
	for _, p := range placed {
		status := models.OrderStatusPlaced
		if p.Err != nil {
			status = models.OrderStatusRejected
		}
		out = append(out, r.orderRecord(p.Intent, p.OrderID, p.Err, status))
	}
	return out
}

func (r *Remediator) orderRecord(intent OrderIntent, orderID string, err error, status string) *models.OrderRecord {
	rec := &models.OrderRecord{
		Market:       intent.Market.Name,
		TokenIndex:   intent.TokenIndex,
		Side:         string(intent.Side),
		Type:         string(exchange.OrderTypeLimit),
		Price:        intent.Price,
		Size:         intent.Size,
		NetValue:     intent.NetValue,
		VenueOrderID: orderID,
		Status:       status,
		CreatedAt:    r.now(),
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	return rec
}

// notifyEvent отправляет уведомление с собственным дедлайном
func notifyEvent(ctx context.Context, n Notifier, timeout time.Duration, log *utils.Logger, notif *models.Notification) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := n.Notify(nctx, notif); err != nil {
		log.Warn("notification failed", utils.String("type", notif.Type), utils.Err(err))
	}
}
