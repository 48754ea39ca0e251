package bot

import (
	"errors"
	"testing"

	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name                string
		deposits            []string
		borrows             []string
		wantRatio           string
		wantLiquidatable    bool
		wantUndercollateral bool
	}{
		{
			name:     "без долгов счёт здоров даже с нулевыми активами",
			deposits: []string{"0", "0", "0"},
			borrows:  []string{"0", "0", "0"},
		},
		{
			name:     "только депозиты",
			deposits: []string{"1", "10", "500"},
			borrows:  []string{"0", "0", "0"},
		},
		{
			name:      "ratio ровно maintenance - не помечен",
			deposits:  []string{"0", "0", "110"},
			borrows:   []string{"0", "0", "100"},
			wantRatio: "1.1",
		},
		{
			name:             "ratio чуть ниже maintenance - помечен",
			deposits:         []string{"0", "0", "109"},
			borrows:          []string{"0", "0", "100"},
			wantRatio:        "1.09",
			wantLiquidatable: true,
		},
		{
			name:                "сценарий BTC/ETH: 4000 против 15000",
			deposits:            []string{"0", "2", "0"},
			borrows:             []string{"0.5", "0", "0"},
			wantRatio:           "0.2667",
			wantLiquidatable:    true,
			wantUndercollateral: true,
		},
		{
			name:      "quote учитывается в обеих суммах",
			deposits:  []string{"1", "0", "3000"},
			borrows:   []string{"0", "0", "11000"},
			wantRatio: "3",
		},
	}

	group := testGroup()
	snapshot := testSnapshot(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &models.AccountSnapshot{Address: "acc", Deposits: decs(tt.deposits...), Borrows: decs(tt.borrows...)}

			h, err := Evaluate(account, group, snapshot)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if h.Liquidatable != tt.wantLiquidatable {
				t.Errorf("Liquidatable = %v, want %v (ratio %s)", h.Liquidatable, tt.wantLiquidatable, h.CollateralRatio)
			}
			if h.Undercollateralized != tt.wantUndercollateral {
				t.Errorf("Undercollateralized = %v, want %v", h.Undercollateralized, tt.wantUndercollateral)
			}
			if tt.wantRatio != "" && !h.CollateralRatio.Round(4).Equal(d(tt.wantRatio)) {
				t.Errorf("ratio = %s, want %s", h.CollateralRatio, tt.wantRatio)
			}
			if tt.wantRatio == "" && !h.CollateralRatio.IsZero() {
				t.Errorf("без долгов ratio должен быть нулём, получили %s", h.CollateralRatio)
			}
		})
	}
}

func TestEvaluate_ScenarioValues(t *testing.T) {
	h, err := Evaluate(scenarioAccount("acc"), testGroup(), testSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	if !h.AssetsValue.Equal(d("4000")) {
		t.Errorf("assets = %s, want 4000", h.AssetsValue)
	}
	if !h.LiabilitiesValue.Equal(d("15000")) {
		t.Errorf("liabilities = %s, want 15000", h.LiabilitiesValue)
	}
}

func TestEvaluate_InvalidSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		account *models.AccountSnapshot
	}{
		{"короткий вектор", &models.AccountSnapshot{Deposits: decs("1", "2"), Borrows: decs("0", "0", "0")}},
		{"отрицательный долг", &models.AccountSnapshot{Deposits: decs("1", "2", "3"), Borrows: decs("0", "-1", "0")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Evaluate(tt.account, testGroup(), testSnapshot(t)); !errors.Is(err, models.ErrInvalidSnapshot) {
				t.Errorf("ожидали ErrInvalidSnapshot, получили %v", err)
			}
		})
	}
}

func TestDeficit(t *testing.T) {
	group := testGroup()

	h, _ := Evaluate(scenarioAccount("acc"), group, testSnapshot(t))
	deficit, err := Deficit(h, group)
	if err != nil {
		t.Fatalf("Deficit: %v", err)
	}
	if !deficit.Required.Equal(d("18000")) {
		t.Errorf("required = %s, want 18000", deficit.Required)
	}
	if !deficit.Value.Equal(d("14000")) {
		t.Errorf("deficit = %s, want 14000", deficit.Value)
	}

	l := NewLiquidator(nil, d("1"), utils.NewNopLogger())
	if got := l.SeizeAmount(deficit); !got.Equal(d("14140")) {
		t.Errorf("seize = %s, want 14140", got)
	}
}

func TestDeficit_NotFlagged(t *testing.T) {
	group := testGroup()
	h, _ := Evaluate(healthyAccount("acc"), group, testSnapshot(t))

	if _, err := Deficit(h, group); !errors.Is(err, ErrNotLiquidatable) {
		t.Errorf("ожидали ErrNotLiquidatable, получили %v", err)
	}
	if _, err := Deficit(HealthMetric{}, group); !errors.Is(err, ErrNotLiquidatable) {
		t.Errorf("счёт без долгов: ожидали ErrNotLiquidatable, получили %v", err)
	}
}
