package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/enums"
)

// AccessTokenPayload captures the data needed to mint a token. Production
// tokens come from the hosted auth provider; minting is used by tooling and tests.
type AccessTokenPayload struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   enums.MemberRole
	Email  string
}

// AccessTokenClaims are the claims the API relies on. The subject is the user ID.
type AccessTokenClaims struct {
	OrgID uuid.UUID        `json:"org_id"`
	Role  enums.MemberRole `json:"role"`
	Email string           `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
