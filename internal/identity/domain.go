// Package identity extracts caller identity attributes from bearer tokens.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DomainClaim is the JWT claim carrying the caller's domain id
const DomainClaim = "did"

// ErrMalformedToken is returned when a token cannot be decoded or lacks a domain claim
var ErrMalformedToken = errors.New("malformed token")

// DomainOf returns the domain id carried in the token's claims.
// The signature is not verified: the token is only read to select the
// domain, and is verified by the service it is presented to.
func DomainOf(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	raw, ok := claims[DomainClaim]
	if !ok {
		return "", fmt.Errorf("%w: missing %q claim", ErrMalformedToken, DomainClaim)
	}
	domain, ok := raw.(string)
	if !ok || domain == "" {
		return "", fmt.Errorf("%w: %q claim must be a non-empty string", ErrMalformedToken, DomainClaim)
	}
	return domain, nil
}
