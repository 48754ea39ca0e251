package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// Ошибки репозитория ликвидаций
var (
	ErrLiquidationNotFound = errors.New("liquidation not found")
)

const liquidationColumns = `id, cycle, account, owner, phase, status, assets_value, liabilities_value,
		collateral_ratio, deficit, seize_amount, undercollateralized, error_message, started_at, finished_at`

const orderColumns = `id, liquidation_id, market, token_index, side, type, price, size, net_value,
		venue_order_id, status, error_message, created_at`

// LiquidationRepository - работа с таблицами liquidations и liquidation_orders
type LiquidationRepository struct {
	db *sql.DB
}

// NewLiquidationRepository создает новый экземпляр репозитория
func NewLiquidationRepository(db *sql.DB) *LiquidationRepository {
	return &LiquidationRepository{db: db}
}

// Create записывает попытку ликвидации вместе с её ордерами в одной транзакции
//
// После успешной записи rec.ID и LiquidationID каждого ордера заполнены.
func (r *LiquidationRepository) Create(ctx context.Context, rec *models.LiquidationRecord, orders []*models.OrderRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO liquidations (cycle, account, owner, phase, status, assets_value, liabilities_value,
			collateral_ratio, deficit, seize_amount, undercollateralized, error_message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err = tx.QueryRowContext(ctx, query,
		rec.Cycle,
		rec.Account,
		rec.Owner,
		rec.Phase,
		rec.Status,
		rec.AssetsValue,
		rec.LiabilitiesValue,
		rec.CollateralRatio,
		rec.Deficit,
		rec.SeizeAmount,
		rec.Undercollateralized,
		rec.ErrorMessage,
		rec.StartedAt,
		rec.FinishedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert liquidation: %w", err)
	}

	orderQuery := `
		INSERT INTO liquidation_orders (liquidation_id, market, token_index, side, type, price, size, net_value,
			venue_order_id, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	for _, o := range orders {
		o.LiquidationID = rec.ID
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now()
		}
		err := tx.QueryRowContext(ctx, orderQuery,
			o.LiquidationID,
			o.Market,
			o.TokenIndex,
			o.Side,
			o.Type,
			o.Price,
			o.Size,
			o.NetValue,
			o.VenueOrderID,
			o.Status,
			o.ErrorMessage,
			o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.Market, err)
		}
	}

	return tx.Commit()
}

// GetByID возвращает запись по ID
func (r *LiquidationRepository) GetByID(ctx context.Context, id int64) (*models.LiquidationRecord, error) {
	query := `SELECT ` + liquidationColumns + `
		FROM liquidations
		WHERE id = $1`

	rec, err := scanLiquidation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLiquidationNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetRecent возвращает последние N записей
func (r *LiquidationRepository) GetRecent(ctx context.Context, limit int) ([]*models.LiquidationRecord, error) {
	query := `SELECT ` + liquidationColumns + `
		FROM liquidations
		ORDER BY started_at DESC, id DESC
		LIMIT $1`

	return r.queryLiquidations(ctx, query, limit)
}

// GetByAccount возвращает историю ликвидаций одного счёта
func (r *LiquidationRepository) GetByAccount(ctx context.Context, account string, limit int) ([]*models.LiquidationRecord, error) {
	query := `SELECT ` + liquidationColumns + `
		FROM liquidations
		WHERE account = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2`

	return r.queryLiquidations(ctx, query, account, limit)
}

// GetOrders возвращает ордера ребалансировки для записи
func (r *LiquidationRepository) GetOrders(ctx context.Context, liquidationID int64) ([]*models.OrderRecord, error) {
	query := `SELECT ` + orderColumns + `
		FROM liquidation_orders
		WHERE liquidation_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, liquidationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.OrderRecord
	for rows.Next() {
		o := &models.OrderRecord{}
		err := rows.Scan(
			&o.ID,
			&o.LiquidationID,
			&o.Market,
			&o.TokenIndex,
			&o.Side,
			&o.Type,
			&o.Price,
			&o.Size,
			&o.NetValue,
			&o.VenueOrderID,
			&o.Status,
			&o.ErrorMessage,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetStats агрегирует журнал
//
// TotalSeized учитывает только попытки, где изъятие было выполнено (done, failed).
func (r *LiquidationRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'done'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'aborted'),
			COUNT(*) FILTER (WHERE undercollateralized),
			COALESCE(SUM(seize_amount) FILTER (WHERE status IN ('done', 'failed')), 0),
			COUNT(*) FILTER (WHERE started_at >= $1),
			MAX(started_at)
		FROM liquidations`

	stats := &models.Stats{}
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, query, utils.GetDayStart()).Scan(
		&stats.TotalLiquidations,
		&stats.Done,
		&stats.Failed,
		&stats.Aborted,
		&stats.Undercollateralized,
		&stats.TotalSeized,
		&stats.TodayLiquidations,
		&last,
	)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		stats.LastLiquidationAt = &last.Time
	}
	return stats, nil
}

// DeleteOlderThan удаляет записи старше указанного времени (ордера удаляются каскадом)
func (r *LiquidationRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM liquidations WHERE started_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *LiquidationRepository) queryLiquidations(ctx context.Context, query string, args ...interface{}) ([]*models.LiquidationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.LiquidationRecord
	for rows.Next() {
		rec, err := scanLiquidation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// rowScanner - общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLiquidation(row rowScanner) (*models.LiquidationRecord, error) {
	rec := &models.LiquidationRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.Cycle,
		&rec.Account,
		&rec.Owner,
		&rec.Phase,
		&rec.Status,
		&rec.AssetsValue,
		&rec.LiabilitiesValue,
		&rec.CollateralRatio,
		&rec.Deficit,
		&rec.SeizeAmount,
		&rec.Undercollateralized,
		&rec.ErrorMessage,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
