package controllers

import (
	"context"
	"net/http"

	"github.com/frostline/frostline-backend/api/middleware"
	"github.com/frostline/frostline-backend/api/responses"
	"github.com/frostline/frostline-backend/internal/resilience"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

// BreakerAdmin exposes the AI circuit breaker to operators.
type BreakerAdmin interface {
	Status(ctx context.Context) (resilience.Status, error)
	Reset(ctx context.Context) error
}

type aiStatusResponse struct {
	Enabled bool               `json:"enabled"`
	Breaker *resilience.Status `json:"breaker,omitempty"`
}

// AIStatus reports whether the assistant is configured and the breaker state.
// breaker is nil when AI is disabled.
func AIStatus(breaker BreakerAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if breaker == nil {
			responses.WriteSuccess(w, aiStatusResponse{Enabled: false})
			return
		}
		status, err := breaker.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load breaker state"))
			return
		}
		responses.WriteSuccess(w, aiStatusResponse{Enabled: true, Breaker: &status})
	}
}

// ResetAIBreaker forces the breaker closed and returns the new state.
func ResetAIBreaker(breaker BreakerAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if breaker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "AI is not configured"))
			return
		}
		if err := breaker.Reset(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset breaker"))
			return
		}
		if logg != nil {
			logg.Warn(logg.WithField(r.Context(), "actor_user_id", middleware.UserIDFromContext(r.Context())), "ai.breaker.manual_reset")
		}
		status, err := breaker.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load breaker state"))
			return
		}
		responses.WriteSuccess(w, aiStatusResponse{Enabled: true, Breaker: &status})
	}
}
