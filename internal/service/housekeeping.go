package service

import (
	"context"
	"time"

	"liquidator/pkg/utils"
)

// Housekeeper периодически чистит журнал и уведомления
type Housekeeper struct {
	liquidations      *LiquidationService
	notifications     *NotificationService
	retention         time.Duration
	keepNotifications int
	interval          time.Duration
	log               *utils.Logger
}

// NewHousekeeper создает задачу очистки
func NewHousekeeper(liquidations *LiquidationService, notifications *NotificationService, retention time.Duration, keepNotifications int, log *utils.Logger) *Housekeeper {
	if log == nil {
		log = utils.L()
	}
	return &Housekeeper{
		liquidations:      liquidations,
		notifications:     notifications,
		retention:         retention,
		keepNotifications: keepNotifications,
		interval:          time.Hour,
		log:               log.WithComponent("housekeeping"),
	}
}

// Run выполняет очистку сразу и затем раз в interval, до отмены ctx
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		h.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce выполняет один проход очистки
func (h *Housekeeper) RunOnce(ctx context.Context) {
	if n, err := h.liquidations.Prune(ctx, h.retention); err != nil {
		h.log.Warn("journal prune failed", utils.Err(err))
	} else if n > 0 {
		h.log.Info("journal pruned", utils.Int64("deleted", n))
	}

	if n, err := h.notifications.CleanupOld(ctx, h.keepNotifications); err != nil {
		h.log.Warn("notification cleanup failed", utils.Err(err))
	} else if n > 0 {
		h.log.Info("notifications cleaned up", utils.Int64("deleted", n))
	}
}
