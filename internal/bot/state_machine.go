package bot

import "liquidator/internal/models"

// ValidTransitions определяет допустимые переходы между фазами обработки счёта
var ValidTransitions = map[string][]string{
	models.PhasePending:     {models.PhaseSeizing, models.PhaseFailed},
	models.PhaseSeizing:     {models.PhaseUnwinding, models.PhaseFailed},
	models.PhaseUnwinding:   {models.PhaseSettling, models.PhaseFailed},
	models.PhaseSettling:    {models.PhaseRebalancing, models.PhaseFailed},
	models.PhaseRebalancing: {models.PhaseFinalSettle, models.PhaseFailed},
	models.PhaseFinalSettle: {models.PhaseDone, models.PhaseFailed},
	models.PhaseDone:        {},
	models.PhaseFailed:      {}, // следующий цикл начинает с PENDING по свежему состоянию
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// PhaseInfo возвращает описание фазы для API и уведомлений
func PhaseInfo(p string) string {
	switch p {
	case models.PhasePending:
		return "Счёт помечен к ликвидации"
	case models.PhaseSeizing:
		return "Изъятие залога..."
	case models.PhaseUnwinding:
		return "Отмена открытых ордеров..."
	case models.PhaseSettling:
		return "Расчёт средств с площадки..."
	case models.PhaseRebalancing:
		return "Закрытие позиций..."
	case models.PhaseFinalSettle:
		return "Финальный расчёт..."
	case models.PhaseDone:
		return "Обработка завершена"
	case models.PhaseFailed:
		return "Ошибка! Счёт в промежуточном состоянии"
	default:
		return "Неизвестная фаза"
	}
}

// IsTerminal возвращает true для завершённых фаз
func IsTerminal(p string) bool {
	return p == models.PhaseDone || p == models.PhaseFailed
}

// HoldsSeizedFunds возвращает true если залог уже изъят и счёт под контролем ликвидатора
func HoldsSeizedFunds(p string) bool {
	switch p {
	case models.PhaseUnwinding, models.PhaseSettling, models.PhaseRebalancing, models.PhaseFinalSettle:
		return true
	}
	return false
}
