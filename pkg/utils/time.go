package utils

import (
	"time"
)

// time.go - границы периодов для статистики журнала и форматирование uptime

// GetDayStart возвращает начало текущего дня (00:00:00 UTC)
func GetDayStart() time.Time {
	return GetDayStartFrom(time.Now())
}

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDuration форматирует длительность с точностью до секунды
//
//	45s, 5m30s, 2h15m0s, 75h0m0s
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d >= time.Hour {
		return d.Truncate(time.Minute).String()
	}
	return d.Truncate(time.Second).String()
}

// Millis возвращает длительность в миллисекундах для логов и метрик
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
