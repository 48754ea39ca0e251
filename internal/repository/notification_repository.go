package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"liquidator/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

const notificationColumns = `id, timestamp, type, severity, account, message, meta`

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет уведомление; Meta хранится как JSONB
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	var meta []byte
	if len(n.Meta) > 0 {
		data, err := json.Marshal(n.Meta)
		if err != nil {
			return fmt.Errorf("encode meta: %w", err)
		}
		meta = data
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, account, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.Account,
		n.Message,
		meta,
	).Scan(&n.ID)
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		ORDER BY timestamp DESC, id DESC
		LIMIT $1`

	return r.query(ctx, query, limit)
}

// GetByTypes возвращает последние уведомления указанных типов
func (r *NotificationRepository) GetByTypes(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	if len(types) == 0 {
		return r.GetRecent(ctx, limit)
	}

	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE type = ANY($1)
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`

	return r.query(ctx, query, pq.Array(types), limit)
}

// GetByAccount возвращает уведомления по счёту
func (r *NotificationRepository) GetByAccount(ctx context.Context, account string, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE account = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`

	return r.query(ctx, query, account, limit)
}

// Count возвращает общее число уведомлений
func (r *NotificationRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count)
	return count, err
}

// DeleteOlderThan удаляет уведомления старше указанного времени
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE timestamp < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// KeepRecent оставляет только последние N уведомлений
func (r *NotificationRepository) KeepRecent(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE id NOT IN (
			SELECT id FROM notifications
			ORDER BY timestamp DESC, id DESC
			LIMIT $1
		)`

	result, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *NotificationRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var account sql.NullString
	var meta []byte

	if err := row.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &account, &n.Message, &meta); err != nil {
		return nil, err
	}

	if account.Valid {
		n.Account = &account.String
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Meta); err != nil {
			return nil, fmt.Errorf("decode meta of notification %d: %w", n.ID, err)
		}
	}
	return n, nil
}
