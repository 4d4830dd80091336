package sources

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"BTC", "BTC"},
		{"btc", "BTC"},
		{"btc-usd", "BTC"},
		{"BTC_USD", "BTC"},
		{"BTC/USDT", "BTC"},
		{"btc usdc", "BTC"},
		{"ETHBUSD", "ETH"},
		{" eth ", "ETH"},
		{"USDT", "USDT"}, // suffix never strips the whole symbol
		{"USD", "USD"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeSymbol(tt.input); got != tt.expected {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeSymbolSpellingsConverge(t *testing.T) {
	spellings := []string{"btc-usd", "BTC_USD", "BTC", "btc/usdt", "BtcUsd"}
	for _, spelling := range spellings {
		if got := NormalizeSymbol(spelling); got != "BTC" {
			t.Errorf("NormalizeSymbol(%q) = %q, want BTC", spelling, got)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"BTC", "eth", "btc-usd", "LINK", "1INCH"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("ValidateSymbol(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "B", "TOOLONGSYMBOLNAME", "BT$C"}
	for _, s := range invalid {
		if err := ValidateSymbol(s); err == nil {
			t.Errorf("ValidateSymbol(%q) expected error", s)
		}
	}
}
