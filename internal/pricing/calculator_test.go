package pricing

import (
	"math"
	"math/rand"
	"testing"

	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
)

func TestDeliveredPriceExample(t *testing.T) {
	got, err := DeliveredPrice(2.5, 15, 0.25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Breakdown{CostPerLb: 2.5, MarginAmount: 0.375, FreightPerLb: 0.25, Total: 3.125}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestDeliveredPriceTotalEqualsParts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		cost := rng.Float64() * 20
		margin := rng.Float64() * 100
		freight := rng.Float64() * 2

		got, err := DeliveredPrice(cost, margin, freight)
		if err != nil {
			t.Fatalf("unexpected error for (%v, %v, %v): %v", cost, margin, freight, err)
		}
		sum := Round(got.CostPerLb + got.MarginAmount + got.FreightPerLb)
		if math.Abs(sum-got.Total) > 1e-9 {
			t.Fatalf("total %v does not equal sum of parts %v for %+v", got.Total, sum, got)
		}
		again, _ := DeliveredPrice(cost, margin, freight)
		if again != got {
			t.Fatalf("expected identical results, got %+v and %+v", got, again)
		}
	}
}

func TestDeliveredPriceRoundsComponents(t *testing.T) {
	got, err := DeliveredPrice(1.23456789, 33.333, 0.111119)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CostPerLb != 1.2346 {
		t.Fatalf("expected cost rounded to 1.2346, got %v", got.CostPerLb)
	}
	if got.MarginAmount != 0.4115 {
		t.Fatalf("expected margin rounded to 0.4115, got %v", got.MarginAmount)
	}
	if got.FreightPerLb != 0.1111 {
		t.Fatalf("expected freight rounded to 0.1111, got %v", got.FreightPerLb)
	}
	if got.Total != 1.7572 {
		t.Fatalf("expected total 1.7572, got %v", got.Total)
	}
}

func TestMarginPercentBounds(t *testing.T) {
	for _, pct := range []float64{0, 100, 42.5} {
		if _, err := MarginAmount(3, pct); err != nil {
			t.Fatalf("expected margin %v to be accepted, got %v", pct, err)
		}
	}
	for _, pct := range []float64{-0.01, 100.01, math.NaN()} {
		_, err := DeliveredPrice(3, pct, 0.1)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for margin %v, got %v", pct, err)
		}
	}
}

func TestDeliveredPriceRejectsNegativeFreight(t *testing.T) {
	if _, err := DeliveredPrice(3, 10, -0.01); err == nil {
		t.Fatal("expected error for negative freight")
	}
}

func TestCostPerLb(t *testing.T) {
	got, err := CostPerLb(75, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}

	got, err = CostPerLb(100, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 33.3333 {
		t.Fatalf("expected 33.3333, got %v", got)
	}

	for _, weight := range []float64{0, -4} {
		_, err := CostPerLb(10, weight)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for weight %v, got %v", weight, err)
		}
	}
}
