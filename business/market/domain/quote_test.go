package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantBase  string
		wantQuote string
		wantErr   bool
	}{
		{
			name:      "btc_usdt",
			input:     "BTC/USDT",
			wantBase:  "BTC",
			wantQuote: "USDT",
		},
		{
			name:      "lowercase_normalized",
			input:     "eth/usdc",
			wantBase:  "ETH",
			wantQuote: "USDC",
		},
		{
			name:      "whitespace_trimmed",
			input:     " BTC / USDT ",
			wantBase:  "BTC",
			wantQuote: "USDT",
		},
		{
			name:    "missing_separator",
			input:   "BTCUSDT",
			wantErr: true,
		},
		{
			name:    "empty_quote",
			input:   "BTC/",
			wantErr: true,
		},
		{
			name:    "same_base_and_quote",
			input:   "BTC/BTC",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := ParsePair(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePair(%q) expected error, got %v", tt.input, pair)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePair(%q) unexpected error: %v", tt.input, err)
			}
			if pair.Base != tt.wantBase || pair.Quote != tt.wantQuote {
				t.Errorf("ParsePair(%q) = %s/%s, want %s/%s",
					tt.input, pair.Base, pair.Quote, tt.wantBase, tt.wantQuote)
			}
		})
	}
}

func TestPairSymbol(t *testing.T) {
	pair := MustParsePair("BTC/USDT")
	if got := pair.Symbol(); got != "BTCUSDT" {
		t.Errorf("Symbol() = %q, want BTCUSDT", got)
	}
	if got := pair.String(); got != "BTC/USDT" {
		t.Errorf("String() = %q, want BTC/USDT", got)
	}
}

func TestQuoteRoundAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		precision int32
		want      string
	}{
		{
			name:      "floors_not_rounds",
			amount:    "0.123456789",
			precision: 6,
			want:      "0.123456",
		},
		{
			name:      "floors_even_when_half_up_would_round",
			amount:    "0.19999999",
			precision: 4,
			want:      "0.1999",
		},
		{
			name:      "exact_amount_unchanged",
			amount:    "1.25",
			precision: 2,
			want:      "1.25",
		},
		{
			name:      "zero_precision",
			amount:    "9.99",
			precision: 0,
			want:      "9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Quote{Precision: tt.precision}
			got := q.RoundAmount(decimal.RequireFromString(tt.amount))
			if got.String() != tt.want {
				t.Errorf("RoundAmount(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestSnapshotPartialFailure(t *testing.T) {
	pair := MustParsePair("BTC/USDT")
	binanceQuote := &Quote{
		Venue:     "binance",
		Pair:      pair,
		Price:     decimal.RequireFromString("43000"),
		Timestamp: time.Now(),
	}
	krakenErr := errors.New("venue unreachable")

	snap := NewSnapshot(pair, []VenueResult{
		{Venue: "binance", Quote: binanceQuote},
		{Venue: "kraken", Err: krakenErr},
	})

	quotes := snap.Quotes()
	if len(quotes) != 1 {
		t.Fatalf("Quotes() returned %d quotes, want 1", len(quotes))
	}
	if quotes[0].Venue != "binance" {
		t.Errorf("Quotes()[0].Venue = %q, want binance", quotes[0].Venue)
	}

	failed := snap.Failed()
	if len(failed) != 1 || failed[0].Venue != "kraken" {
		t.Fatalf("Failed() = %+v, want single kraken entry", failed)
	}

	if _, ok := snap.Lookup("kraken"); ok {
		t.Error("Lookup(kraken) should report no quote")
	}
	if q, ok := snap.Lookup("binance"); !ok || !q.Price.Equal(binanceQuote.Price) {
		t.Errorf("Lookup(binance) = %+v, %v", q, ok)
	}
}

func TestSnapshotQuotesPreserveVenueOrder(t *testing.T) {
	pair := MustParsePair("ETH/USDT")
	mk := func(venue string) VenueResult {
		return VenueResult{Venue: venue, Quote: &Quote{Venue: venue, Pair: pair, Price: decimal.New(1, 0)}}
	}

	snap := NewSnapshot(pair, []VenueResult{mk("kraken"), mk("binance"), mk("uniswap")})

	want := []string{"kraken", "binance", "uniswap"}
	for i, q := range snap.Quotes() {
		if q.Venue != want[i] {
			t.Errorf("Quotes()[%d].Venue = %q, want %q", i, q.Venue, want[i])
		}
	}
}
