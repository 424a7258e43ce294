package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/frostline/frostline-backend/internal/packsize"
	"github.com/frostline/frostline-backend/internal/pricing"
)

func TestDeliveredPrice(t *testing.T) {
	logg := testLogger()
	actor := newTestActor()

	t.Run("cost per lb", func(t *testing.T) {
		rec := serve(DeliveredPrice(logg), actor.newRequest(http.MethodPost, "/api/v1/pricing/delivered-price",
			`{"cost_per_lb":2.5,"margin_percent":15,"freight_per_lb":0.25}`, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var got pricing.Breakdown
		decodeData(t, rec, &got)
		if got.MarginAmount != 0.375 || got.Total != 3.125 {
			t.Fatalf("unexpected breakdown %+v", got)
		}
	})

	t.Run("derived from case figures", func(t *testing.T) {
		rec := serve(DeliveredPrice(logg), actor.newRequest(http.MethodPost, "/",
			`{"unit_cost":75,"case_weight_lbs":30,"margin_percent":10,"freight_per_lb":0.1}`, nil))
		var got pricing.Breakdown
		decodeData(t, rec, &got)
		if got.CostPerLb != 2.5 || got.Total != 2.85 {
			t.Fatalf("unexpected breakdown %+v", got)
		}
	})

	t.Run("missing cost", func(t *testing.T) {
		rec := serve(DeliveredPrice(logg), actor.newRequest(http.MethodPost, "/", `{"margin_percent":10,"freight_per_lb":0.1}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("margin out of range", func(t *testing.T) {
		rec := serve(DeliveredPrice(logg), actor.newRequest(http.MethodPost, "/", `{"cost_per_lb":1,"margin_percent":120,"freight_per_lb":0.1}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("zero case weight", func(t *testing.T) {
		rec := serve(DeliveredPrice(logg), actor.newRequest(http.MethodPost, "/", `{"unit_cost":10,"case_weight_lbs":0,"margin_percent":10,"freight_per_lb":0}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

type stubPackSizeParser struct {
	calls  int
	result packsize.Result
}

func (s *stubPackSizeParser) Parse(ctx context.Context, userID, packSize, description string) packsize.Result {
	s.calls++
	return s.result
}

func TestParsePackSize(t *testing.T) {
	logg := testLogger()
	actor := newTestActor()

	t.Run("patterns only", func(t *testing.T) {
		parser := &stubPackSizeParser{}
		rec := serve(ParsePackSize(parser, logg), actor.newRequest(http.MethodPost, "/", `{"pack_size":"6/5 LB"}`, nil))
		var got packsize.Result
		decodeData(t, rec, &got)
		if got.WeightLbs == nil || *got.WeightLbs != 30 || got.Unparseable {
			t.Fatalf("unexpected result %+v", got)
		}
		if parser.calls != 0 {
			t.Fatal("parser should not be called without use_ai")
		}
	})

	t.Run("unparseable is not an error", func(t *testing.T) {
		rec := serve(ParsePackSize(nil, logg), actor.newRequest(http.MethodPost, "/", `{"pack_size":"approx 40 pounds per case"}`, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got packsize.Result
		decodeData(t, rec, &got)
		if got.WeightLbs != nil || !got.Unparseable {
			t.Fatalf("unexpected result %+v", got)
		}
	})

	t.Run("assistant fallback", func(t *testing.T) {
		w := 36.0
		parser := &stubPackSizeParser{result: packsize.Result{WeightLbs: &w, AIAssisted: true}}
		rec := serve(ParsePackSize(parser, logg), actor.newRequest(http.MethodPost, "/",
			`{"pack_size":"case of 36","description":"chicken wings 36 lb case","use_ai":true}`, nil))
		var got packsize.Result
		decodeData(t, rec, &got)
		if parser.calls != 1 || !got.AIAssisted || *got.WeightLbs != 36 {
			t.Fatalf("unexpected result %+v calls=%d", got, parser.calls)
		}
	})
}
