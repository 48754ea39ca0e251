package bot

import (
	"context"
	"errors"
	"testing"

	"liquidator/internal/exchange"
	"liquidator/internal/models"
	"liquidator/pkg/utils"
)

func TestSettleAll_OffsetsBorrows(t *testing.T) {
	account := &models.AccountSnapshot{
		Address:  "acc-1",
		Deposits: decs("0.3", "1", "100"),
		Borrows:  decs("0.5", "0", "40"),
	}
	f := newFakeProtocol(account)
	s := NewSettler(f, f, true, utils.NewNopLogger())

	fresh, err := s.SettleAll(context.Background(), account, testGroup().Markets)
	if err != nil {
		t.Fatalf("SettleAll: %v", err)
	}
	if f.settles != 1 {
		t.Errorf("ожидали 1 расчёт площадки, получили %d", f.settles)
	}
	if len(f.settleBorrows) != 2 {
		t.Fatalf("ожидали гашение BTC и USDC, получили %+v", f.settleBorrows)
	}
	if f.settleBorrows[0].Token != 0 || !f.settleBorrows[0].Quantity.Equal(d("0.3")) {
		t.Errorf("BTC: %+v, want 0.3", f.settleBorrows[0])
	}
	if f.settleBorrows[1].Token != 2 || !f.settleBorrows[1].Quantity.Equal(d("40")) {
		t.Errorf("USDC: %+v, want 40", f.settleBorrows[1])
	}

	// Возвращается свежий снимок после гашения
	if !fresh.Deposits[0].IsZero() || !fresh.Borrows[0].Equal(d("0.2")) || !fresh.Deposits[2].Equal(d("60")) {
		t.Errorf("неверный снимок: %+v", fresh)
	}
}

func TestSettleAll_BorrowSettlementDisabled(t *testing.T) {
	account := &models.AccountSnapshot{
		Address:  "acc-1",
		Deposits: decs("0.3", "1", "100"),
		Borrows:  decs("0.5", "0", "40"),
	}
	f := newFakeProtocol(account)
	s := NewSettler(f, f, false, utils.NewNopLogger())

	fresh, err := s.SettleAll(context.Background(), account, testGroup().Markets)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.settleBorrows) != 0 {
		t.Errorf("гашение отключено, но вызовов: %d", len(f.settleBorrows))
	}
	if !fresh.Deposits[0].Equal(d("0.3")) || !fresh.Borrows[0].Equal(d("0.5")) {
		t.Errorf("снимок должен остаться без изменений: %+v", fresh)
	}
}

// TestSettleAll_PlanSizing: с гашением размер ордера - чистый остаток, без гашения - полный долг
func TestSettleAll_PlanSizing(t *testing.T) {
	tests := []struct {
		name          string
		settleBorrows bool
		wantBuy       string
	}{
		{"borrow settlement on", true, "0.2"},
		{"borrow settlement off", false, "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// BTC: депозит и долг в одном токене
			account := &models.AccountSnapshot{
				Address:  "acc-1",
				Deposits: decs("0.3", "0", "20000"),
				Borrows:  decs("0.5", "0", "0"),
			}
			f := newFakeProtocol(account)
			s := NewSettler(f, f, tt.settleBorrows, utils.NewNopLogger())

			fresh, err := s.SettleAll(context.Background(), account, testGroup().Markets)
			if err != nil {
				t.Fatalf("SettleAll: %v", err)
			}

			intents := newTestRebalancer(nil).Plan(fresh, testSnapshot(t))
			if len(intents) != 1 {
				t.Fatalf("ожидали один BUY BTC, получили %+v", intents)
			}
			if intents[0].Side != exchange.SideBuy || !intents[0].Size.Equal(d(tt.wantBuy)) {
				t.Errorf("BUY BTC размер %s, want %s", intents[0].Size, tt.wantBuy)
			}
		})
	}
}

// TestSettleAll_MalformedRefetch: усечённый снимок не доходит до гашения
func TestSettleAll_MalformedRefetch(t *testing.T) {
	account := &models.AccountSnapshot{
		Address:  "acc-1",
		Deposits: decs("0.3", "1", "100"),
		Borrows:  decs("0.5", "0", "40"),
	}
	f := newFakeProtocol(account)
	s := NewSettler(&shortLedger{fakeProtocol: f}, f, true, utils.NewNopLogger())

	fresh, err := s.SettleAll(context.Background(), account, testGroup().Markets)
	if !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("ожидали ErrInvalidSnapshot, получили %v", err)
	}
	if fresh != nil {
		t.Errorf("при ошибке снимок не возвращается: %+v", fresh)
	}
	if len(f.settleBorrows) != 0 {
		t.Errorf("по усечённому снимку гашение не выполняется: %+v", f.settleBorrows)
	}
}
