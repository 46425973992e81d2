package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for the
// SEO Tracker chat service. It includes the standard claims required by the
// JWT specification and the custom claims needed to identify the signed-in
// user on REST and WebSocket requests.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the unique identifier of the signed-in user. All conversation and
	// presence operations are authorized against this identity.
	ID string `json:"id"`

	// DisplayName is the user's display name, denormalized into the token so
	// the gateway can label sessions without a store round trip.
	DisplayName string `json:"display_name"`
}
