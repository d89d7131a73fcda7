package vaultplan

import (
	"testing"

	"github.com/vaultplan/vaultplan/date"
)

func TestClassify_Type(t *testing.T) {
	prices := PriceSnapshot{"ETH": AUD(10), "DEGEN": AUD(2)}

	testCases := []struct {
		name     string
		symbol   string
		dir      Direction
		wantType EntryType
	}{
		{name: "native in is income", symbol: "ETH", dir: In, wantType: Income},
		{name: "native out is swap", symbol: "ETH", dir: Out, wantType: Swap},
		{name: "token in is swap", symbol: "DEGEN", dir: In, wantType: Swap},
		{name: "token out is swap", symbol: "DEGEN", dir: Out, wantType: Swap},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := RawTransfer{
				Hash:      "0xabc1234567890",
				Date:      date.New(2025, 1, 2),
				Symbol:    tc.symbol,
				Amount:    A(1.0),
				Direction: tc.dir,
				Block:     100,
			}
			e := Classify(tr, "hot", prices)
			if e.Type != tc.wantType {
				t.Errorf("Classify() type = %v, want %v", e.Type, tc.wantType)
			}
		})
	}
}

func TestClassify_Value(t *testing.T) {
	prices := PriceSnapshot{"DEGEN": AUD(3.2)}

	tr := RawTransfer{Hash: "0xfeedbeef00", Symbol: "DEGEN", Amount: A(2.5), Direction: In}
	e := Classify(tr, "hot", prices)
	if !e.Value.Equal(AUD(8.0)) {
		t.Errorf("Classify() value = %v, want %v", e.Value, AUD(8.0))
	}

	// a symbol absent from the snapshot values at zero
	tr.Symbol = "UNKNOWN"
	e = Classify(tr, "hot", prices)
	if !e.Value.IsZero() {
		t.Errorf("Classify() value for unknown symbol = %v, want zero", e.Value)
	}
}

func TestClassify_Description(t *testing.T) {
	prices := PriceSnapshot{"ETH": AUD(10)}
	tr := RawTransfer{Hash: "0xabc1234567890", Symbol: "ETH", Amount: A(1.0), Direction: In}

	e := Classify(tr, "hot", prices)
	want := "ETH income 0xabc123"
	if e.Description != want {
		t.Errorf("Classify() description = %q, want %q", e.Description, want)
	}
}
