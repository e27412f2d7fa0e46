package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer mints and verifies access tokens with one algorithm.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	// Keyfunc is handed to the jwt parser; it must reject other algorithms.
	Keyfunc(token *jwt.Token) (any, error)
	Algorithm() string
}

// HMACSigner signs with HS256 and a shared secret.
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "HMACSigner.Sign")
	}
	return signed, nil
}

func (h *HMACSigner) Keyfunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != h.Algorithm() {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) Algorithm() string {
	return jwt.SigningMethodHS256.Alg()
}
