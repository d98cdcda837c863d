// Package signal classifies the latest price against its bands and renders alert text.
package signal

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the alert class of a price relative to its bands.
type Category string

const (
	SellCritical Category = "SELL_CRITICAL"
	SellNormal   Category = "SELL_NORMAL"
	BuyCritical  Category = "BUY_CRITICAL"
	BuyNormal    Category = "BUY_NORMAL"
	None         Category = "NONE"
)

// Code is the short suffix used in alert keys.
func (c Category) Code() string {
	switch c {
	case SellCritical:
		return "SELL_CRIT"
	case SellNormal:
		return "SELL_NORM"
	case BuyCritical:
		return "BUY_CRIT"
	case BuyNormal:
		return "BUY_NORM"
	default:
		return "NONE"
	}
}

// Direction is "sell", "buy" or "" for None.
func (c Category) Direction() string {
	switch c {
	case SellCritical, SellNormal:
		return "sell"
	case BuyCritical, BuyNormal:
		return "buy"
	default:
		return ""
	}
}

// Critical reports whether c is one of the overshoot categories.
func (c Category) Critical() bool {
	return c == SellCritical || c == BuyCritical
}

// Key builds the deduplication key for a symbol and category.
func Key(symbol string, c Category) string {
	return fmt.Sprintf("%s_%s", symbol, c.Code())
}

// Thresholds configure the classifier.
type Thresholds struct {
	CriticalPct float64
	Overbought  float64
	Oversold    float64
}

// DefaultThresholds: 2% overshoot, RSI 70/30.
func DefaultThresholds() Thresholds {
	return Thresholds{CriticalPct: 0.02, Overbought: 70, Oversold: 30}
}

// Input is what the classifier needs about one ticker.
type Input struct {
	Symbol string
	Price  float64
	Upper  float64
	Lower  float64
	RSI    float64
}

// Result is a classified alert ready for the cooldown gate.
type Result struct {
	Symbol        string
	Category      Category
	Key           string
	Text          string
	Price         float64
	Level         float64 // band or critical level that was crossed
	RSI           float64
	Overbought    bool
	Oversold      bool
	CriticalUpper float64
	CriticalLower float64
}

// Classify evaluates in, critical checks first. ok is false when nothing fired,
// including when the bands have collapsed onto each other.
func Classify(in Input, th Thresholds) (Result, bool) {
	critUpper := in.Upper * (1 + th.CriticalPct)
	critLower := in.Lower * (1 - th.CriticalPct)

	res := Result{
		Symbol:        in.Symbol,
		Price:         in.Price,
		RSI:           in.RSI,
		Overbought:    in.RSI > th.Overbought,
		Oversold:      in.RSI < th.Oversold,
		CriticalUpper: critUpper,
		CriticalLower: critLower,
	}

	if in.Upper <= in.Lower {
		// Zero-width bands carry no volatility information.
		res.Category = None
		return res, false
	}

	switch {
	case in.Price >= critUpper:
		res.Category, res.Level = SellCritical, critUpper
	case in.Price >= in.Upper:
		res.Category, res.Level = SellNormal, in.Upper
	case in.Price <= critLower:
		res.Category, res.Level = BuyCritical, critLower
	case in.Price <= in.Lower:
		res.Category, res.Level = BuyNormal, in.Lower
	default:
		res.Category = None
		return res, false
	}

	res.Key = Key(in.Symbol, res.Category)
	res.Text = Render(res)
	return res, true
}

// Render formats the chat message for r.
func Render(r Result) string {
	var b strings.Builder
	price := money(r.Price)
	level := money(r.Level)

	switch r.Category {
	case SellCritical:
		fmt.Fprintf(&b, "🚨 CRITICAL SELL: %s 🚨\nBroke out!\n💵 %s\n📈 Critical ceiling: %s\n", r.Symbol, price, level)
	case SellNormal:
		fmt.Fprintf(&b, "⚠️ SELL: %s\nTouched upper band\n💵 %s\n📈 Band: %s\n", r.Symbol, price, level)
	case BuyCritical:
		fmt.Fprintf(&b, "💎 CRITICAL BUY: %s 💎\nCollapsed!\n💵 %s\n📉 Critical floor: %s\n", r.Symbol, price, level)
	case BuyNormal:
		fmt.Fprintf(&b, "✅ BUY: %s\nTouched lower band\n💵 %s\n📉 Band: %s\n", r.Symbol, price, level)
	default:
		return ""
	}

	fmt.Fprintf(&b, "⚡ RSI: %s %s", rsiText(r.RSI), Annotation(r.Overbought, r.Oversold))
	return strings.TrimRight(b.String(), " ")
}

// Annotation is the RSI flag appended to messages.
func Annotation(overbought, oversold bool) string {
	switch {
	case overbought:
		return "🔥(Overbought)"
	case oversold:
		return "❄️(Oversold)"
	default:
		return ""
	}
}

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func rsiText(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Round(0).String()
}

// Summary is the one-line log form "SYM: $P (RSI: r)".
func Summary(symbol string, price, rsi float64) string {
	return fmt.Sprintf("🔎 %s: $%s (RSI: %s)", symbol, money(price), rsiText(rsi))
}
