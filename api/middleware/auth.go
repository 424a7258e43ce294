package middleware

import (
	"net/http"
	"strings"

	"github.com/frostline/frostline-backend/api/responses"
	pkgAuth "github.com/frostline/frostline-backend/pkg/auth"
	"github.com/frostline/frostline-backend/pkg/config"
	pkgerrors "github.com/frostline/frostline-backend/pkg/errors"
	"github.com/frostline/frostline-backend/pkg/logger"
)

const bearerScheme = "bearer"

// bearerToken extracts the credential from an Authorization header. A bare
// token without a scheme is accepted; any other scheme is not.
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found {
		return header, true
	}
	if !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token := strings.TrimSpace(rest)
	return token, token != ""
}

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			// ParseAccessToken already rejected malformed subjects.
			userID, _ := claims.UserID()
			actor := logger.Actor{
				UserID: userID.String(),
				OrgID:  claims.OrgID.String(),
				Role:   claims.Role.String(),
			}

			ctx := WithRole(WithOrgID(WithUserID(r.Context(), actor.UserID), actor.OrgID), actor.Role)
			if claims.Email != "" {
				ctx = withValue(ctx, ctxEmail, claims.Email)
			}
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
