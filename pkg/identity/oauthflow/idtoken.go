package oauthflow

import (
	"time"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims is the OIDC claim set minted at token-exchange time. It is
// never stored — only its signed compact form is handed back to the client.
type IDTokenClaims struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// IDTokenSigner mints HS256-signed ID tokens with the server's shared secret.
type IDTokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewIDTokenSigner(secret, issuer string, ttl time.Duration) *IDTokenSigner {
	return &IDTokenSigner{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Mint produces a signed ID token bound to userID as subject and
// clientID as audience, per OIDC Core §2.
func (s *IDTokenSigner) Mint(userID kernel.UserID, clientID string, profile IDTokenClaims) (string, error) {
	now := time.Now()
	profile.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{clientID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, profile)
	return token.SignedString(s.secret)
}
