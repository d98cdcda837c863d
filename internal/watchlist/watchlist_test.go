package watchlist

import "testing"

func TestDefaultWatchlist(t *testing.T) {
	wl := Default()
	if wl.Len() != len(DefaultSymbols) {
		t.Fatalf("expected %d assets, got %d", len(DefaultSymbols), wl.Len())
	}
	continuous := 0
	for _, a := range wl.Assets() {
		if a.Continuous {
			continuous++
			if a.Symbol != "BTC-USD" {
				t.Fatalf("unexpected continuous asset %s", a.Symbol)
			}
		}
	}
	if continuous != 1 {
		t.Fatalf("expected exactly one continuous asset, got %d", continuous)
	}
}

func TestNewKeepsOrderAndExplicitFlags(t *testing.T) {
	wl, err := New([]Asset{{Symbol: " ZZZ "}, {Symbol: "AAA", Continuous: true}, {Symbol: "ETH-USD"}}, []string{"-USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := wl.Assets()
	want := []Asset{{"ZZZ", false}, {"AAA", true}, {"ETH-USD", true}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	cases := [][]Asset{
		nil,
		{{Symbol: ""}},
		{{Symbol: "A"}, {Symbol: "A"}},
	}
	for i, assets := range cases {
		if _, err := New(assets, nil); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestAssetsReturnsCopy(t *testing.T) {
	wl, _ := FromSymbols([]string{"A"}, nil)
	assets := wl.Assets()
	assets[0].Symbol = "mutated"
	if wl.Assets()[0].Symbol != "A" {
		t.Fatal("watchlist must not be mutable through Assets")
	}
}
