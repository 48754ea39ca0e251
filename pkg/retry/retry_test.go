package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxRetries:   attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	}, fastConfig(5))

	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if calls != 3 {
		t.Errorf("ожидали 3 вызова, получили %d", calls)
	}
}

func TestDo_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("attempt %d", calls)
	}, fastConfig(3))

	if err == nil || err.Error() != "attempt 3" {
		t.Errorf("ожидали ошибку последней попытки, получили %v", err)
	}
	if calls != 3 {
		t.Errorf("ожидали 3 вызова, получили %d", calls)
	}
}

func TestDo_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), func() error {
		calls++
		return errors.New("fail")
	}, Config{})

	if calls != 1 {
		t.Errorf("ожидали 1 вызов, получили %d", calls)
	}
}

func TestDo_RetryIfStopsOnPermanent(t *testing.T) {
	calls := 0
	cfg := fastConfig(5)
	cfg.RetryIf = IsRetryable

	err := Do(context.Background(), func() error {
		calls++
		return Permanent(errors.New("bad request"))
	}, cfg)

	if calls != 1 {
		t.Errorf("постоянная ошибка не должна повторяться, вызовов: %d", calls)
	}
	var perm *PermanentError
	if !errors.As(err, &perm) {
		t.Errorf("ожидали PermanentError, получили %T", err)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), func() error { return errors.New("fail") }, cfg)

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("ожидали callback для попыток [1 2], получили %v", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func() error {
		calls++
		return nil
	}, fastConfig(3))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("ожидали context.Canceled, получили %v", err)
	}
	if calls != 0 {
		t.Errorf("операция не должна вызываться при отменённом контексте")
	}
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := Config{MaxRetries: 10, InitialDelay: time.Second, MaxDelay: time.Second}
	start := time.Now()
	err := Do(ctx, func() error { return errors.New("slow") }, cfg)

	if err == nil || err.Error() != "slow" {
		t.Errorf("ожидали последнюю ошибку операции, получили %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("ожидание не прервано отменой контекста")
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("retry me")
		}
		return 42, nil
	}, fastConfig(3))

	if err != nil || got != 42 {
		t.Errorf("ожидали 42, nil; получили %d, %v", got, err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), true},
		{"permanent", Permanent(errors.New("x")), false},
		{"wrapped permanent", fmt.Errorf("call: %w", Permanent(errors.New("x"))), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrappersNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent должен возвращать nil для nil")
	}
}

func TestCalculateDelay_Capped(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}
	cfg.validate()

	if d := cfg.calculateDelay(0); d != 100*time.Millisecond {
		t.Errorf("attempt 0: ожидали 100ms, получили %v", d)
	}
	if d := cfg.calculateDelay(1); d != 200*time.Millisecond {
		t.Errorf("attempt 1: ожидали 200ms, получили %v", d)
	}
	if d := cfg.calculateDelay(5); d != 300*time.Millisecond {
		t.Errorf("attempt 5: ожидали 300ms, получили %v", d)
	}
}
