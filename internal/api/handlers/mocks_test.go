package handlers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
	"liquidator/internal/repository"
)

// ============ Mock LiquidationService ============

type MockLiquidationService struct {
	records []*models.LiquidationRecord
	orders  map[int64][]*models.OrderRecord
	err     error

	lastAccount string
	lastLimit   int
}

func NewMockLiquidationService() *MockLiquidationService {
	return &MockLiquidationService{orders: make(map[int64][]*models.OrderRecord)}
}

func (m *MockLiquidationService) AddRecord(id int64, account, status string, orders ...*models.OrderRecord) {
	m.records = append(m.records, &models.LiquidationRecord{
		ID:          id,
		Account:     account,
		Status:      status,
		SeizeAmount: decimal.NewFromInt(2020),
	})
	m.orders[id] = orders
}

func (m *MockLiquidationService) GetLiquidations(ctx context.Context, account string, limit int) ([]*models.LiquidationRecord, error) {
	m.lastAccount, m.lastLimit = account, limit
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.LiquidationRecord
	for _, r := range m.records {
		if account == "" || r.Account == account {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockLiquidationService) GetLiquidation(ctx context.Context, id int64) (*models.LiquidationRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrLiquidationNotFound
}

func (m *MockLiquidationService) GetOrders(ctx context.Context, id int64) ([]*models.OrderRecord, error) {
	if _, err := m.GetLiquidation(ctx, id); err != nil {
		return nil, err
	}
	return m.orders[id], nil
}

func (m *MockLiquidationService) GetStats(ctx context.Context) (*models.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Stats{TotalLiquidations: len(m.records), TotalSeized: decimal.NewFromInt(2020)}, nil
}

// ============ Mock NotificationService ============

type MockNotificationService struct {
	notifications []*models.Notification
	err           error
	lastTypes     []string
	lastLimit     int
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) AddNotification(notifType, severity, message string) {
	m.notifications = append(m.notifications, &models.Notification{
		ID:       int64(len(m.notifications) + 1),
		Type:     notifType,
		Severity: severity,
		Message:  message,
	})
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	m.lastTypes, m.lastLimit = types, limit
	if m.err != nil {
		return nil, m.err
	}
	if len(types) == 0 {
		return m.notifications, nil
	}
	set := make(map[string]bool)
	for _, t := range types {
		set[t] = true
	}
	var out []*models.Notification
	for _, n := range m.notifications {
		if set[n.Type] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MockNotificationService) GetNotificationCount(ctx context.Context) (int, error) {
	return len(m.notifications), m.err
}

// ============ Mock StatusProvider ============

type MockStatusProvider struct {
	status models.EngineStatus
}

func (m *MockStatusProvider) Status() models.EngineStatus {
	return m.status
}

var errDatabase = errors.New("database error")
