package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/frostline/frostline-backend/internal/resilience"
	"github.com/frostline/frostline-backend/pkg/enums"
)

type stubBreaker struct {
	state  enums.BreakerState
	resets int
	err    error
}

func (b *stubBreaker) Status(ctx context.Context) (resilience.Status, error) {
	if b.err != nil {
		return resilience.Status{}, b.err
	}
	return resilience.Status{Name: "ai", State: b.state, Threshold: 5}, nil
}

func (b *stubBreaker) Reset(ctx context.Context) error {
	b.resets++
	b.state = enums.BreakerClosed
	return nil
}

type aiStatusBody struct {
	Enabled bool               `json:"enabled"`
	Breaker *resilience.Status `json:"breaker"`
}

func TestAIStatus(t *testing.T) {
	logg := testLogger()
	actor := newTestActor()

	rec := serve(AIStatus(nil, logg), actor.newRequest(http.MethodGet, "/", "", nil))
	var disabled aiStatusBody
	decodeData(t, rec, &disabled)
	if rec.Code != http.StatusOK || disabled.Enabled || disabled.Breaker != nil {
		t.Fatalf("expected disabled status, got %d %+v", rec.Code, disabled)
	}

	rec = serve(AIStatus(&stubBreaker{state: enums.BreakerOpen}, logg), actor.newRequest(http.MethodGet, "/", "", nil))
	var open aiStatusBody
	decodeData(t, rec, &open)
	if !open.Enabled || open.Breaker == nil || open.Breaker.State != enums.BreakerOpen {
		t.Fatalf("expected open breaker, got %+v", open)
	}

	rec = serve(AIStatus(&stubBreaker{err: errors.New("redis down")}, logg), actor.newRequest(http.MethodGet, "/", "", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestResetAIBreaker(t *testing.T) {
	logg := testLogger()
	breaker := &stubBreaker{state: enums.BreakerOpen}
	rec := serve(ResetAIBreaker(breaker, logg), newTestActor().newRequest(http.MethodPost, "/", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got aiStatusBody
	decodeData(t, rec, &got)
	if breaker.resets != 1 || got.Breaker.State != enums.BreakerClosed {
		t.Fatalf("expected closed breaker after reset, got %+v", got.Breaker)
	}

	rec = serve(ResetAIBreaker(nil, logg), newTestActor().newRequest(http.MethodPost, "/", "", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when AI is disabled, got %d", rec.Code)
	}
}
