package service

import (
	"context"
	"time"

	"liquidator/internal/bot"
	"liquidator/internal/models"
	"liquidator/internal/repository"
)

// LiquidationRepositoryInterface определяет интерфейс журнала ликвидаций
type LiquidationRepositoryInterface interface {
	Create(ctx context.Context, rec *models.LiquidationRecord, orders []*models.OrderRecord) error
	GetByID(ctx context.Context, id int64) (*models.LiquidationRecord, error)
	GetRecent(ctx context.Context, limit int) ([]*models.LiquidationRecord, error)
	GetByAccount(ctx context.Context, account string, limit int) ([]*models.LiquidationRecord, error)
	GetOrders(ctx context.Context, liquidationID int64) ([]*models.OrderRecord, error)
	GetStats(ctx context.Context) (*models.Stats, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(ctx context.Context, notif *models.Notification) error
	GetRecent(ctx context.Context, limit int) ([]*models.Notification, error)
	GetByTypes(ctx context.Context, types []string, limit int) ([]*models.Notification, error)
	GetByAccount(ctx context.Context, account string, limit int) ([]*models.Notification, error)
	Count(ctx context.Context) (int, error)
	KeepRecent(ctx context.Context, keep int) (int64, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ LiquidationRepositoryInterface = (*repository.LiquidationRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// LiquidationServiceInterface - чтение журнала для API
type LiquidationServiceInterface interface {
	GetLiquidations(ctx context.Context, account string, limit int) ([]*models.LiquidationRecord, error)
	GetLiquidation(ctx context.Context, id int64) (*models.LiquidationRecord, error)
	GetOrders(ctx context.Context, id int64) ([]*models.OrderRecord, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

// NotificationServiceInterface - чтение уведомлений для API
type NotificationServiceInterface interface {
	GetNotifications(ctx context.Context, types []string, limit int) ([]*models.Notification, error)
	GetNotificationCount(ctx context.Context) (int, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ LiquidationServiceInterface = (*LiquidationService)(nil)
var _ NotificationServiceInterface = (*NotificationService)(nil)

// Сервисы подключаются к движку как журнал и канал уведомлений
var _ bot.Journal = (*LiquidationService)(nil)
var _ bot.Notifier = (*NotificationService)(nil)
