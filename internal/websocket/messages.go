package websocket

import (
	"time"

	"liquidator/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeCycle - итог цикла сканирования, отправляется после каждого цикла
	MessageTypeCycle MessageType = "cycle"

	// MessageTypeLiquidation - запись журнала об обработке счёта
	MessageTypeLiquidation MessageType = "liquidation"

	// MessageTypeNotification - новое уведомление
	MessageTypeNotification MessageType = "notification"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// CycleMessage - итог цикла: сколько счетов просмотрено, помечено, ликвидировано
type CycleMessage struct {
	BaseMessage
	Data *models.CycleReport `json:"data"`
}

// LiquidationMessage - результат обработки одного счёта
type LiquidationMessage struct {
	BaseMessage
	Data *LiquidationData `json:"data"`
}

// LiquidationData - запись журнала вместе с ордерами ребалансировки
type LiquidationData struct {
	Record *models.LiquidationRecord `json:"record"`
	Orders []*models.OrderRecord     `json:"orders,omitempty"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now()}
}

// NewCycleMessage создает сообщение об итоге цикла
func NewCycleMessage(report *models.CycleReport) *CycleMessage {
	return &CycleMessage{BaseMessage: newBase(MessageTypeCycle), Data: report}
}

// NewLiquidationMessage создает сообщение о записи журнала
func NewLiquidationMessage(rec *models.LiquidationRecord, orders []*models.OrderRecord) *LiquidationMessage {
	return &LiquidationMessage{
		BaseMessage: newBase(MessageTypeLiquidation),
		Data:        &LiquidationData{Record: rec, Orders: orders},
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{BaseMessage: newBase(MessageTypeNotification), Data: notif}
}
