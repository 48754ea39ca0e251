package service

import (
	"context"
	"strings"
	"time"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// NotificationService доставляет уведомления движка
//
// Уведомление сохраняется в БД (если журнал включён) и транслируется
// через WebSocket. Тип отражает событие обработки счёта:
// - LIQUIDATABLE: счёт ниже maintenance ratio
// - UNDERCOLLATERALIZED: ratio < 1
// - SEIZED: залог изъят
// - REMEDIATED: позиции счёта закрыты
// - REMEDIATION_FAILED: обработка прервана после изъятия
// - STALE_STATE: леджер отклонил ликвидацию
// - CYCLE_ABORTED: цикл не получил общее состояние
type NotificationService struct {
	repo  NotificationRepositoryInterface
	wsHub WebSocketBroadcaster
	log   *utils.Logger
}

// NewNotificationService создает сервис; repo == nil означает работу без БД
func NewNotificationService(repo NotificationRepositoryInterface, log *utils.Logger) *NotificationService {
	if log == nil {
		log = utils.L()
	}
	return &NotificationService{
		repo: repo,
		log:  log.WithComponent("notifications"),
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
//
// Вызывается после инициализации Hub в main.go:
//
//	notifService := service.NewNotificationService(notifRepo, log)
//	notifService.SetWebSocketHub(wsHub)
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Notify сохраняет уведомление и транслирует его подписчикам
//
// Ошибка БД возвращается вызывающему, но не блокирует трансляцию.
func (s *NotificationService) Notify(ctx context.Context, notif *models.Notification) error {
	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}
	if notif.Severity == "" {
		notif.Severity = models.SeverityInfo
	}

	var err error
	if s.repo != nil {
		err = s.repo.Create(ctx, notif)
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}

	return err
}

// GetNotifications возвращает список уведомлений с фильтрацией.
//
// Неизвестные типы отбрасываются; если не осталось ни одного,
// возвращаются уведомления всех типов (новые сверху).
func (s *NotificationService) GetNotifications(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	limit = clampLimit(limit)

	normalizedTypes := make([]string, 0, len(types))
	for _, t := range types {
		normalized := strings.ToUpper(strings.TrimSpace(t))
		if normalized != "" && isValidNotificationType(normalized) {
			normalizedTypes = append(normalizedTypes, normalized)
		}
	}

	if len(normalizedTypes) > 0 {
		return s.repo.GetByTypes(ctx, normalizedTypes, limit)
	}
	return s.repo.GetRecent(ctx, limit)
}

// GetAccountNotifications возвращает уведомления по одному счёту
func (s *NotificationService) GetAccountNotifications(ctx context.Context, account string, limit int) ([]*models.Notification, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	return s.repo.GetByAccount(ctx, account, clampLimit(limit))
}

// GetNotificationCount возвращает общее количество уведомлений
func (s *NotificationService) GetNotificationCount(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, ErrJournalDisabled
	}
	return s.repo.Count(ctx)
}

// CleanupOld удаляет уведомления, оставляя только последние N записей
func (s *NotificationService) CleanupOld(ctx context.Context, keepCount int) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	if keepCount <= 0 {
		keepCount = 1000
	}
	return s.repo.KeepRecent(ctx, keepCount)
}

var validNotificationTypes = map[string]bool{
	models.NotificationTypeLiquidatable:        true,
	models.NotificationTypeUndercollateralized: true,
	models.NotificationTypeSeized:              true,
	models.NotificationTypeRemediated:          true,
	models.NotificationTypeRemediationFailed:   true,
	models.NotificationTypeStaleState:          true,
	models.NotificationTypeCycleAborted:        true,
}

func isValidNotificationType(notifType string) bool {
	return validNotificationTypes[notifType]
}
