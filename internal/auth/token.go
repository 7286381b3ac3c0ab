package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "palantir/internal/errors"
)

const (
	typeCheckout = "checkout"
	typeAdmin    = "admin"
)

// checkoutTokenGrace keeps a checkout token verifiable past the session's
// expiry. Session expiry is a state question answered with a terminal-state
// error, not a token rejection, so the token must still parse after the
// session has lapsed.
const checkoutTokenGrace = 7 * 24 * time.Hour

// TokenService issues and validates HMAC-signed capability tokens. A
// checkout token is scoped to a single checkout id, and possession of it
// is the only access control a checkout needs.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

func (s *TokenService) IssueCheckoutToken(checkoutID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"typ": typeCheckout,
		"chk": checkoutID,
		"exp": expiresAt.Add(checkoutTokenGrace).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing checkout token: %w", err)
	}
	return signed, nil
}

// ValidateCheckoutToken returns AuthorizationError unless tokenStr is a
// valid checkout token scoped to checkoutID.
func (s *TokenService) ValidateCheckoutToken(tokenStr, checkoutID string) error {
	claims, err := s.parse(tokenStr, typeCheckout)
	if err != nil {
		return err
	}
	if chk, ok := claims["chk"].(string); !ok || chk != checkoutID {
		return apperrors.NewAuthorizationError("token not valid for this checkout")
	}
	return nil
}

// ValidateAdminToken guards admin-only surfaces such as the order history.
func (s *TokenService) ValidateAdminToken(tokenStr string) error {
	_, err := s.parse(tokenStr, typeAdmin)
	return err
}

func (s *TokenService) parse(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if tokenStr == "" {
		return nil, apperrors.NewAuthorizationError("missing access token")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, apperrors.NewAuthorizationError("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.NewAuthorizationError("invalid token claims")
	}
	if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
		return nil, apperrors.NewAuthorizationError("invalid token type")
	}
	return claims, nil
}
