package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestQuote_Validate(t *testing.T) {
	tests := []struct {
		name    string
		quote   Quote
		wantErr bool
	}{
		{"Valid", Quote{Symbol: "btcusdt", BidPrice: d("99"), AskPrice: d("101")}, false},
		{"BidOnly", Quote{Symbol: "btcusdt", BidPrice: d("99")}, false},
		{"Crossed", Quote{Symbol: "btcusdt", BidPrice: d("102"), AskPrice: d("101")}, true},
		{"NoSymbol", Quote{BidPrice: d("99"), AskPrice: d("101")}, true},
		{"NegativePrice", Quote{Symbol: "btcusdt", BidPrice: d("-1"), AskPrice: d("101")}, true},
		{"NegativeSize", Quote{Symbol: "btcusdt", BidPrice: d("99"), AskPrice: d("101"), BidSize: d("-2")}, true},
		{"Empty", Quote{Symbol: "btcusdt"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quote.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuote_Mid(t *testing.T) {
	q := Quote{Symbol: "btcusdt", BidPrice: d("99"), AskPrice: d("101")}
	if !q.Mid().Equal(d("100")) {
		t.Errorf("Mid() = %s, want 100", q.Mid())
	}
}

func TestPosition_Direction(t *testing.T) {
	tests := []struct {
		name    string
		qty     string
		isLong  bool
		isShort bool
	}{
		{"Long", "100", true, false},
		{"Short", "-100", false, true},
		{"Flat", "0", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Position{Qty: d(tt.qty)}
			if got := p.IsLong(); got != tt.isLong {
				t.Errorf("Position.IsLong() = %v, want %v", got, tt.isLong)
			}
			if got := p.IsShort(); got != tt.isShort {
				t.Errorf("Position.IsShort() = %v, want %v", got, tt.isShort)
			}
		})
	}
}

func TestFill_SignedQty(t *testing.T) {
	buy := Fill{Side: SideBuy, Qty: d("2")}
	if !buy.SignedQty().Equal(d("2")) {
		t.Errorf("buy SignedQty = %s, want 2", buy.SignedQty())
	}
	sell := Fill{Side: SideSell, Qty: d("2")}
	if !sell.SignedQty().Equal(d("-2")) {
		t.Errorf("sell SignedQty = %s, want -2", sell.SignedQty())
	}
}
