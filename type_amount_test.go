package vaultplan

import "testing"

func TestAmountFromRaw(t *testing.T) {
	tests := []struct {
		raw      string
		decimals int32
		want     Amount
		wantErr  bool
	}{
		{raw: "1500000000000000000", decimals: 18, want: A(1.5)},
		{raw: "2500000", decimals: 6, want: A(2.5)},
		{raw: "0", decimals: 18, want: A(0)},
		{raw: "not-a-number", decimals: 18, wantErr: true},
	}
	for _, tc := range tests {
		got, err := AmountFromRaw(tc.raw, tc.decimals)
		if (err != nil) != tc.wantErr {
			t.Errorf("AmountFromRaw(%q, %d) error = %v, wantErr %v", tc.raw, tc.decimals, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && !got.Equal(tc.want) {
			t.Errorf("AmountFromRaw(%q, %d) = %v, want %v", tc.raw, tc.decimals, got, tc.want)
		}
	}
}
