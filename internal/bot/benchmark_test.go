package bot

import (
	"fmt"
	"testing"
	"time"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

// ============================================================
// Бенчмарки оценки и планирования
// ============================================================
//
// Цикл сканирования проходит по всем счетам группы: оценка
// одного счёта должна оставаться в микросекундах.

func benchAccounts(n int) []*models.AccountSnapshot {
	out := make([]*models.AccountSnapshot, n)
	for i := range out {
		a := scenarioAccount(fmt.Sprintf("acc-%d", i))
		a.Deposits[2] = d(fmt.Sprintf("%d", i*10))
		out[i] = a
	}
	return out
}

func BenchmarkEvaluate(b *testing.B) {
	group := testGroup()
	snapshot, _ := models.NewMarketSnapshot(group, testPrices(), time.Now())
	accounts := benchAccounts(1000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, a := range accounts {
			if _, err := Evaluate(a, group, snapshot); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkPlan(b *testing.B) {
	snapshot, _ := models.NewMarketSnapshot(testGroup(), testPrices(), time.Now())
	account := scenarioAccount("acc")
	r := NewRebalancer(nil, d("5"), d("5"), utils.NewNopLogger())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Plan(account, snapshot)
	}
}
