package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// For riders UserID is the rider id.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Role    enums.ActorRole
	StoreID *uuid.UUID
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	Role    enums.ActorRole `json:"role"`
	StoreID *uuid.UUID      `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}
