package service

import (
	"context"
	"time"

	"liquidator/internal/models"
	"liquidator/internal/repository"
)

// ============ Mock LiquidationRepository ============

type MockLiquidationRepository struct {
	records   []*models.LiquidationRecord
	orders    map[int64][]*models.OrderRecord
	stats     *models.Stats
	createErr error
	getErr    error
	deleteErr error
	deleted   int64
	nextID    int64
}

func NewMockLiquidationRepository() *MockLiquidationRepository {
	return &MockLiquidationRepository{
		orders: make(map[int64][]*models.OrderRecord),
		nextID: 1,
	}
}

func (m *MockLiquidationRepository) Create(ctx context.Context, rec *models.LiquidationRecord, orders []*models.OrderRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	rec.ID = m.nextID
	m.nextID++
	for _, o := range orders {
		o.LiquidationID = rec.ID
	}
	m.records = append(m.records, rec)
	m.orders[rec.ID] = orders
	return nil
}

func (m *MockLiquidationRepository) GetByID(ctx context.Context, id int64) (*models.LiquidationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrLiquidationNotFound
}

func (m *MockLiquidationRepository) GetRecent(ctx context.Context, limit int) ([]*models.LiquidationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.LiquidationRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.records[i])
	}
	return result, nil
}

func (m *MockLiquidationRepository) GetByAccount(ctx context.Context, account string, limit int) ([]*models.LiquidationRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.LiquidationRecord
	for i := len(m.records) - 1; i >= 0 && len(result) < limit; i-- {
		if m.records[i].Account == account {
			result = append(result, m.records[i])
		}
	}
	return result, nil
}

func (m *MockLiquidationRepository) GetOrders(ctx context.Context, liquidationID int64) ([]*models.OrderRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.orders[liquidationID], nil
}

func (m *MockLiquidationRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &models.Stats{TotalLiquidations: len(m.records)}, nil
}

func (m *MockLiquidationRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if r.StartedAt.Before(before) {
			m.deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return m.deleted, nil
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications []*models.Notification
	createErr     error
	getErr        error
	deleteErr     error
	nextID        int64
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make([]*models.Notification, 0),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = m.nextID
	m.nextID++
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *MockNotificationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit <= 0 || limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	// Возвращаем последние limit записей
	return m.notifications[len(m.notifications)-limit:], nil
}

func (m *MockNotificationRepository) GetByTypes(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}
	for _, n := range m.notifications {
		if typeSet[n.Type] {
			result = append(result, n)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockNotificationRepository) GetByAccount(ctx context.Context, account string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.Account != nil && *n.Account == account {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) Count(ctx context.Context) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.notifications), nil
}

func (m *MockNotificationRepository) KeepRecent(ctx context.Context, keepCount int) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	if len(m.notifications) <= keepCount {
		return 0, nil
	}
	deleted := int64(len(m.notifications) - keepCount)
	m.notifications = m.notifications[len(m.notifications)-keepCount:]
	return deleted, nil
}

// ============ Mock WebSocket Broadcaster ============

type MockWebSocketBroadcaster struct {
	notifications []*models.Notification
	liquidations  []*models.LiquidationRecord
}

func NewMockWebSocketBroadcaster() *MockWebSocketBroadcaster {
	return &MockWebSocketBroadcaster{
		notifications: make([]*models.Notification, 0),
	}
}

func (m *MockWebSocketBroadcaster) BroadcastNotification(notif *models.Notification) {
	m.notifications = append(m.notifications, notif)
}

func (m *MockWebSocketBroadcaster) BroadcastLiquidation(rec *models.LiquidationRecord, orders []*models.OrderRecord) {
	m.liquidations = append(m.liquidations, rec)
}
