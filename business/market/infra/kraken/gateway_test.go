package kraken

import (
	"testing"

	"github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
)

func TestKrakenSymbolMapsBTCToXBT(t *testing.T) {
	tests := []struct {
		pair string
		want string
	}{
		{"BTC/USDT", "XBTUSDT"},
		{"ETH/USDT", "ETHUSDT"},
		{"ETH/BTC", "ETHXBT"},
	}

	for _, tt := range tests {
		if got := krakenSymbol(domain.MustParsePair(tt.pair)); got != tt.want {
			t.Errorf("krakenSymbol(%s) = %q, want %q", tt.pair, got, tt.want)
		}
	}
}

func TestMapKrakenError(t *testing.T) {
	tests := []struct {
		name string
		errs []string
		want apperror.Code
	}{
		{"unknown_pair", []string{"EQuery:Unknown asset pair"}, apperror.CodePairNotSupported},
		{"rate_limited", []string{"EAPI:Rate limit exceeded"}, apperror.CodeVenueRateLimited},
		{"bad_key", []string{"EAPI:Invalid key"}, apperror.CodeVenueAuthFailed},
		{"bad_nonce", []string{"EAPI:Invalid nonce"}, apperror.CodeVenueAuthFailed},
		{"service_busy", []string{"EService:Busy"}, apperror.CodeVenueUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperror.GetCode(mapKrakenError(tt.errs)); got != tt.want {
				t.Errorf("mapKrakenError(%v) = %s, want %s", tt.errs, got, tt.want)
			}
		})
	}
}

func TestMapOrderError(t *testing.T) {
	tests := []struct {
		name string
		errs []string
		want apperror.Code
	}{
		{"permission_denied", []string{"EGeneral:Permission denied"}, apperror.CodeCredentialsRequired},
		{"below_minimum", []string{"EOrder:Order minimum not met: volume minimum not met"}, apperror.CodeInvalidTradeAmount},
		{"insufficient_funds", []string{"EOrder:Insufficient funds"}, apperror.CodeOrderRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperror.GetCode(mapOrderError(tt.errs)); got != tt.want {
				t.Errorf("mapOrderError(%v) = %s, want %s", tt.errs, got, tt.want)
			}
		})
	}
}

func TestSignProducesStableSignature(t *testing.T) {
	g := &Gateway{config: Config{
		// Example key material from Kraken's API documentation.
		APISecret: "kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg==",
	}}

	sign1, err := g.sign("/0/private/AddOrder", "1616492376594", "nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25")
	if err != nil {
		t.Fatal(err)
	}

	want := "4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ=="
	if sign1 != want {
		t.Errorf("sign() = %s, want %s", sign1, want)
	}

	sign2, err := g.sign("/0/private/AddOrder", "1616492376594", "nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25")
	if err != nil {
		t.Fatal(err)
	}
	if sign1 != sign2 {
		t.Error("sign() is not deterministic for identical input")
	}
}

func TestSignRejectsMalformedSecret(t *testing.T) {
	g := &Gateway{config: Config{APISecret: "not base64!!!"}}
	if _, err := g.sign("/0/private/AddOrder", "1", "nonce=1"); err == nil {
		t.Fatal("expected error for malformed secret")
	}
}
