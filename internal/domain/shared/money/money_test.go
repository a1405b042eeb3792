package money

import (
	"errors"
	"testing"
)

func TestNewValidatesCurrency(t *testing.T) {
	if _, err := New(100, "usd"); err != nil {
		t.Fatalf("lowercase code should normalize: %v", err)
	}
	if _, err := New(100, "US"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	m := Must(100, "usd")
	if m.Currency != "USD" {
		t.Fatalf("currency not upper-cased: %s", m.Currency)
	}
}

func TestAddSubCurrencyMismatch(t *testing.T) {
	usd := Must(100, "USD")
	eur := Must(100, "EUR")
	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	sum, err := usd.Add(Must(50, "USD"))
	if err != nil || sum.Amount != 150 {
		t.Fatalf("add: %v %+v", err, sum)
	}
	diff, err := sum.Sub(usd)
	if err != nil || diff.Amount != 50 {
		t.Fatalf("sub: %v %+v", err, diff)
	}
}

func TestMulRound(t *testing.T) {
	m := Must(10000, "USD")
	if got := m.MulRound(1.25).Amount; got != 12500 {
		t.Fatalf("1.25x = %d", got)
	}
	if got := m.MulRound(1).Amount; got != 10000 {
		t.Fatalf("identity = %d", got)
	}
	// 333 * 1.1 = 366.3 rounds to 366
	if got := Must(333, "USD").MulRound(1.1).Amount; got != 366 {
		t.Fatalf("rounding = %d", got)
	}
}

func TestPercent(t *testing.T) {
	m := Must(999, "USD")
	if got := m.Percent(50).Amount; got != 499 {
		t.Fatalf("50%% of 999 should truncate to 499, got %d", got)
	}
	if got := m.Percent(0).Amount; got != 0 {
		t.Fatalf("0%% = %d", got)
	}
	if got := m.Percent(120).Amount; got != 999 {
		t.Fatalf("clamped 100%% = %d", got)
	}
}
