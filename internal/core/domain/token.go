package domain

import "time"

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	Subject   string    `json:"sub"`
	Issuer    string    `json:"iss"`
	Audience  []string  `json:"aud"`
	IssuedAt  time.Time `json:"iat"`
	NotBefore time.Time `json:"nbf"`
	ExpiresAt time.Time `json:"exp"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
}

// TokenPair is what a successful login hands to the transport.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
