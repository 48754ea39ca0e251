package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// ErrJournalDisabled - журнал выключен (JOURNAL_ENABLED=false)
var ErrJournalDisabled = errors.New("liquidation journal is disabled")

// LiquidationBroadcaster - интерфейс для отправки записей журнала через WebSocket
type LiquidationBroadcaster interface {
	BroadcastLiquidation(rec *models.LiquidationRecord, orders []*models.OrderRecord)
}

// LiquidationService - журнал попыток ликвидации
//
// Движок пишет в него через RecordLiquidation, API читает историю и статистику.
// Без БД сервис только транслирует записи в WebSocket.
type LiquidationService struct {
	repo  LiquidationRepositoryInterface
	wsHub LiquidationBroadcaster
	log   *utils.Logger
}

// NewLiquidationService создает сервис; repo == nil означает работу без БД
func NewLiquidationService(repo LiquidationRepositoryInterface, log *utils.Logger) *LiquidationService {
	if log == nil {
		log = utils.L()
	}
	return &LiquidationService{
		repo: repo,
		log:  log.WithComponent("journal"),
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast записей
func (s *LiquidationService) SetWebSocketHub(hub LiquidationBroadcaster) {
	s.wsHub = hub
}

// RecordLiquidation сохраняет запись и транслирует её подписчикам
//
// Трансляция выполняется и при ошибке записи в БД.
func (s *LiquidationService) RecordLiquidation(ctx context.Context, rec *models.LiquidationRecord, orders []*models.OrderRecord) error {
	var err error
	if s.repo != nil {
		err = s.repo.Create(ctx, rec, orders)
		if err == nil {
			s.log.Debug("liquidation journaled",
				utils.Int64("id", rec.ID),
				utils.Account(rec.Account),
				utils.String("status", rec.Status),
			)
		}
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastLiquidation(rec, orders)
	}

	return err
}

// GetLiquidations возвращает последние записи; account фильтрует по счёту
func (s *LiquidationService) GetLiquidations(ctx context.Context, account string, limit int) ([]*models.LiquidationRecord, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	limit = clampLimit(limit)

	account = strings.TrimSpace(account)
	if account != "" {
		return s.repo.GetByAccount(ctx, account, limit)
	}
	return s.repo.GetRecent(ctx, limit)
}

// GetLiquidation возвращает запись по ID
func (s *LiquidationService) GetLiquidation(ctx context.Context, id int64) (*models.LiquidationRecord, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	return s.repo.GetByID(ctx, id)
}

// GetOrders возвращает ордера ребалансировки записи
func (s *LiquidationService) GetOrders(ctx context.Context, id int64) ([]*models.OrderRecord, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	// 404 для несуществующей записи, а не пустой список
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetOrders(ctx, id)
}

// GetStats возвращает агрегаты журнала
func (s *LiquidationService) GetStats(ctx context.Context) (*models.Stats, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	return s.repo.GetStats(ctx)
}

// Prune удаляет записи старше retention
func (s *LiquidationService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil || retention <= 0 {
		return 0, nil
	}
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
}

// clampLimit приводит лимит выборки к диапазону 1..500 (по умолчанию 100)
func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}
