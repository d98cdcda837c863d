package signal

import (
	"math"
	"strings"
	"testing"
)

func TestClassifyPrecedence(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name  string
		price float64
		want  Category
	}{
		{"above critical ceiling", 103, SellCritical},
		{"exactly critical ceiling", 102, SellCritical},
		{"between band and ceiling", 101, SellNormal},
		{"exactly upper band", 100, SellNormal},
		{"inside bands", 90, None},
		{"exactly lower band", 80, BuyNormal},
		{"between floor and band", 79, BuyNormal},
		{"just below critical floor", 78.3, BuyCritical},
		{"below critical floor", 70, BuyCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := Classify(Input{Symbol: "ABC", Price: tc.price, Upper: 100, Lower: 80, RSI: 50}, th)
			if res.Category != tc.want {
				t.Fatalf("price %v: expected %s, got %s", tc.price, tc.want, res.Category)
			}
			if ok != (tc.want != None) {
				t.Fatalf("ok flag mismatch for %s", tc.want)
			}
		})
	}
}

func TestClassifyCriticalBeforeNormal(t *testing.T) {
	res, ok := Classify(Input{Symbol: "ABC", Price: 103, Upper: 100, Lower: 90, RSI: 50}, Thresholds{CriticalPct: 0.02, Overbought: 70, Oversold: 30})
	if !ok || res.Category != SellCritical {
		t.Fatalf("expected SELL_CRITICAL, got %s", res.Category)
	}
	if math.Abs(res.CriticalUpper-102) > 1e-9 {
		t.Fatalf("expected critical upper 102, got %v", res.CriticalUpper)
	}
	if res.Key != "ABC_SELL_CRIT" {
		t.Fatalf("unexpected key %s", res.Key)
	}
}

func TestClassifyCollapsedBandsNeverFire(t *testing.T) {
	res, ok := Classify(Input{Symbol: "ABC", Price: 10, Upper: 10, Lower: 10, RSI: 100}, DefaultThresholds())
	if ok || res.Category != None {
		t.Fatalf("zero-width bands must not fire, got %s", res.Category)
	}
	if res.Key != "" || res.Text != "" {
		t.Fatalf("no key or text expected: %+v", res)
	}
}

func TestAnnotations(t *testing.T) {
	res, _ := Classify(Input{Symbol: "HOT", Price: 120, Upper: 100, Lower: 80, RSI: 81}, DefaultThresholds())
	if !res.Overbought || res.Oversold {
		t.Fatalf("expected overbought flag only: %+v", res)
	}
	if !strings.Contains(res.Text, "🔥(Overbought)") {
		t.Fatalf("message missing overbought flag: %q", res.Text)
	}

	res, _ = Classify(Input{Symbol: "COLD", Price: 60, Upper: 100, Lower: 80, RSI: 12.4}, DefaultThresholds())
	if !res.Oversold || res.Overbought {
		t.Fatalf("expected oversold flag only: %+v", res)
	}
	if !strings.Contains(res.Text, "❄️(Oversold)") || !strings.Contains(res.Text, "RSI: 12") {
		t.Fatalf("message missing oversold flag: %q", res.Text)
	}

	res, _ = Classify(Input{Symbol: "MID", Price: 101, Upper: 100, Lower: 80, RSI: 70}, DefaultThresholds())
	if res.Overbought || res.Oversold {
		t.Fatal("70 is not overbought")
	}
	if strings.HasSuffix(res.Text, " ") {
		t.Fatalf("message should not end with a space: %q", res.Text)
	}
}

func TestRenderFormatsPrices(t *testing.T) {
	res, ok := Classify(Input{Symbol: "PETR4.SA", Price: 41.239, Upper: 40, Lower: 30, RSI: 66.6}, DefaultThresholds())
	if !ok {
		t.Fatal("expected alert")
	}
	for _, want := range []string{"CRITICAL SELL: PETR4.SA", "💵 41.24", "Critical ceiling: 40.80", "RSI: 67"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("message %q missing %q", res.Text, want)
		}
	}
}

func TestCategoryHelpers(t *testing.T) {
	if SellNormal.Direction() != "sell" || BuyCritical.Direction() != "buy" || None.Direction() != "" {
		t.Fatal("unexpected direction mapping")
	}
	if !BuyCritical.Critical() || BuyNormal.Critical() {
		t.Fatal("unexpected critical mapping")
	}
	if Key("X", SellNormal) != "X_SELL_NORM" {
		t.Fatalf("unexpected key %s", Key("X", SellNormal))
	}
}

func TestSummary(t *testing.T) {
	if got := Summary("ABC", 12.345, 55.5); got != "🔎 ABC: $12.35 (RSI: 56)" {
		t.Fatalf("unexpected summary %q", got)
	}
}
