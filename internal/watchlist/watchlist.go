// Package watchlist defines the static set of monitored tickers.
package watchlist

import (
	"fmt"
	"strings"
)

// Asset is one watched ticker. Continuous assets trade through weekends.
type Asset struct {
	Symbol     string `mapstructure:"symbol"`
	Continuous bool   `mapstructure:"continuous"`
}

// Watchlist is the ordered, immutable list evaluated each cycle.
type Watchlist struct {
	assets []Asset
}

// DefaultSymbols is the production watchlist.
var DefaultSymbols = []string{
	// Brazil: index, ETF and real-estate funds
	"^BVSP", "BOVA11.SA", "AFHI11.SA", "CDII11.SA", "GGRC11.SA",
	"HFOF11.SA", "HGLG11.SA", "JURO11.SA", "KFOF11.SA", "KNCR11.SA",
	"MXRF11.SA", "PVBI11.SA", "RBHG11.SA", "RBVA11.SA", "RECT11.SA",
	"TRXF11.SA", "VGIR11.SA", "XPML11.SA",

	// US stocks, REITs and ETFs
	"ARE", "EPR", "EQIX", "GLPI", "IAUM", "IBIT", "JEPI", "NOBL",
	"O", "OHI", "PSA", "QQQ", "MCD", "REXR", "RING", "SCHD",
	"SHV", "STAG", "VICI", "VNQ", "VOO",

	// Crypto
	"BTC-USD",
}

// DefaultContinuousSuffixes mark symbols that trade around the clock.
var DefaultContinuousSuffixes = []string{"-USD"}

// New builds a watchlist. Assets not flagged continuous are flagged when their symbol
// ends with one of suffixes. Blank and duplicate symbols are rejected.
func New(assets []Asset, suffixes []string) (*Watchlist, error) {
	seen := make(map[string]struct{}, len(assets))
	out := make([]Asset, 0, len(assets))
	for i, a := range assets {
		symbol := strings.TrimSpace(a.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("watchlist entry %d has an empty symbol", i)
		}
		if _, dup := seen[symbol]; dup {
			return nil, fmt.Errorf("watchlist symbol %s listed twice", symbol)
		}
		seen[symbol] = struct{}{}

		continuous := a.Continuous
		if !continuous {
			for _, suffix := range suffixes {
				if suffix != "" && strings.HasSuffix(symbol, suffix) {
					continuous = true
					break
				}
			}
		}
		out = append(out, Asset{Symbol: symbol, Continuous: continuous})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("watchlist is empty")
	}
	return &Watchlist{assets: out}, nil
}

// FromSymbols wraps plain symbols.
func FromSymbols(symbols []string, suffixes []string) (*Watchlist, error) {
	assets := make([]Asset, len(symbols))
	for i, s := range symbols {
		assets[i] = Asset{Symbol: s}
	}
	return New(assets, suffixes)
}

// Default returns the production watchlist.
func Default() *Watchlist {
	wl, err := FromSymbols(DefaultSymbols, DefaultContinuousSuffixes)
	if err != nil {
		panic("default watchlist invalid: " + err.Error())
	}
	return wl
}

// Assets returns a copy of the entries in evaluation order.
func (w *Watchlist) Assets() []Asset {
	out := make([]Asset, len(w.assets))
	copy(out, w.assets)
	return out
}

// Len is the number of watched assets.
func (w *Watchlist) Len() int {
	return len(w.assets)
}
