package bot

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// ErrNotLiquidatable - счёт не ниже maintenance ratio, ликвидировать нечего
var ErrNotLiquidatable = errors.New("account is not liquidatable")

// HealthMetric - оценка здоровья счёта по оракульным ценам
type HealthMetric struct {
	AssetsValue      decimal.Decimal
	LiabilitiesValue decimal.Decimal

	// CollateralRatio = AssetsValue / LiabilitiesValue, ноль если долгов нет
	CollateralRatio decimal.Decimal

	Liquidatable        bool // ratio < MaintCollRatio
	Undercollateralized bool // ratio < 1, активов не хватает на покрытие долгов
}

// HasLiabilities - у счёта есть хотя бы один долг
func (h HealthMetric) HasLiabilities() bool {
	return h.LiabilitiesValue.IsPositive()
}

// LiquidationDeficit - сколько quote нужно внести, чтобы счёт вернулся к init ratio
type LiquidationDeficit struct {
	Required decimal.Decimal // LiabilitiesValue * InitCollRatio
	Assets   decimal.Decimal
	Value    decimal.Decimal // Required - Assets
}

// Evaluate оценивает здоровье счёта
//
// Суммирует deposit*price и borrow*price по всем токенам, включая quote.
// Без долгов коэффициент не определён, такой счёт всегда здоров.
func Evaluate(account *models.AccountSnapshot, group *models.GroupState, snapshot *models.MarketSnapshot) (HealthMetric, error) {
	if err := account.Validate(snapshot.NumTokens()); err != nil {
		return HealthMetric{}, err
	}

	prices := snapshot.Prices()
	h := HealthMetric{
		AssetsValue:      utils.DotProduct(account.Deposits, prices),
		LiabilitiesValue: utils.DotProduct(account.Borrows, prices),
	}
	if !h.HasLiabilities() {
		return h, nil
	}

	h.CollateralRatio = h.AssetsValue.Div(h.LiabilitiesValue)
	h.Liquidatable = h.CollateralRatio.LessThan(group.MaintCollRatio)
	h.Undercollateralized = h.CollateralRatio.LessThan(decimal.NewFromInt(1))
	return h, nil
}

// Deficit считает дефицит залога для помеченного счёта
func Deficit(h HealthMetric, group *models.GroupState) (LiquidationDeficit, error) {
	if !h.Liquidatable {
		return LiquidationDeficit{}, fmt.Errorf("%w: ratio %s", ErrNotLiquidatable, h.CollateralRatio.StringFixed(4))
	}

	required := h.LiabilitiesValue.Mul(group.InitCollRatio)
	return LiquidationDeficit{
		Required: required,
		Assets:   h.AssetsValue,
		Value:    required.Sub(h.AssetsValue),
	}, nil
}
