package utils

// math.go - арифметика с фиксированной точкой для решений ликвидатора
//
// Все суммы, цены и коэффициенты - decimal.Decimal. float64 допускается
// только на выходе в метрики.

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PctUp возвращает value * (1 + pct/100)
//
//	PctUp(14000, 1) = 14140
func PctUp(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
}

// PctDown возвращает value * (1 - pct/100)
//
//	PctDown(2000, 5) = 1900
func PctDown(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}

// DotProduct возвращает Σ a[i]*b[i] по общей длине векторов
func DotProduct(a, b []decimal.Decimal) decimal.Decimal {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := decimal.Zero
	for i := 0; i < n; i++ {
		sum = sum.Add(a[i].Mul(b[i]))
	}
	return sum
}

// MinDec возвращает меньшее из двух значений
func MinDec(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ToFloat конвертирует decimal в float64 для метрик
func ToFloat(v decimal.Decimal) float64 {
	f, _ := v.Float64()
	return f
}
