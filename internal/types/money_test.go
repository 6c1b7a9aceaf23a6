package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.5", "12.5"},
		{"12,50", "12.5"},
		{"100", "100"},
		{"0.005", "0.01"},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if err != nil {
			t.Fatalf("ParseMoney(%q): %v", tt.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseMoney(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseMoney_Invalid(t *testing.T) {
	if _, err := ParseMoney("abc"); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
}

func TestSumMoney(t *testing.T) {
	got := SumMoney(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("SumMoney = %s, want 0.3", got)
	}
}

func TestValidID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{string(NewID()), true},
		{"7d0c6f0e-3a3b-4c1e-9d43-1b8f3f6c2a10", true},
		{"", false},
		{"mesa-1", false},
	}
	for _, tc := range cases {
		if got := ValidID(tc.in); got != tc.want {
			t.Errorf("ValidID(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
