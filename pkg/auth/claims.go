package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shutupnraveee/backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	SubjectID   uuid.UUID
	Role        enums.ActorRole
	AffiliateID *uuid.UUID
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	SubjectID   uuid.UUID       `json:"subject_id"`
	Role        enums.ActorRole `json:"role"`
	AffiliateID *uuid.UUID      `json:"affiliate_id,omitempty"`
	jwt.RegisteredClaims
}
