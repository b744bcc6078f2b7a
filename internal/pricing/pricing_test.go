package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeSalePrice(t *testing.T) {
	cases := []struct {
		cost   string
		markup string
		want   string
	}{
		{"1000", "15", "1150"},
		{"1001", "0", "1001"},
		{"999.2", "0", "999.5"},
		{"999.7", "0", "1000"},
		{"999.5", "0", "999.5"},
		{"10", "10", "11"},
		{"12.34", "10", "14"},
		{"0", "25", "0"},
	}

	for _, tc := range cases {
		got, err := ComputeSalePrice(decimal.RequireFromString(tc.cost), decimal.RequireFromString(tc.markup))
		if err != nil {
			t.Fatalf("ComputeSalePrice(%s, %s) returned error: %v", tc.cost, tc.markup, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("ComputeSalePrice(%s, %s) = %s, want %s", tc.cost, tc.markup, got, tc.want)
		}
	}
}

func TestComputeSalePriceRejectsNegativeInput(t *testing.T) {
	if _, err := ComputeSalePrice(decimal.NewFromInt(-1), decimal.Zero); !errors.Is(err, ErrNegativeInput) {
		t.Fatalf("expected ErrNegativeInput for negative cost, got %v", err)
	}
	if _, err := ComputeSalePrice(decimal.NewFromInt(10), decimal.NewFromInt(-5)); !errors.Is(err, ErrNegativeInput) {
		t.Fatalf("expected ErrNegativeInput for negative markup, got %v", err)
	}
}

func TestRound50NeverRoundsDown(t *testing.T) {
	for _, raw := range []string{"0.01", "3.49", "3.5", "3.51", "7.999", "120"} {
		in := decimal.RequireFromString(raw)
		out := Round50(in)
		if out.LessThan(in) {
			t.Fatalf("Round50(%s) = %s is below its input", raw, out)
		}
		if !out.Mul(decimal.NewFromInt(2)).Equal(out.Mul(decimal.NewFromInt(2)).Floor()) {
			t.Fatalf("Round50(%s) = %s is not a multiple of 0.5", raw, out)
		}
	}
}
