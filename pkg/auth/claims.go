package auth

import (
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload carries the identity fields minted into a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.RoleName
	JTI    string
}

// AccessTokenClaims is the signed claim set for API access tokens.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"uid"`
	Role   enums.RoleName `json:"role"`
	jwt.RegisteredClaims
}
