package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTValidator struct {
	alg    string
	pubKey *rsa.PublicKey
	secret []byte
}

func NewJWTValidator(alg, secret, pubKeyPath string) (*JWTValidator, error) {
	alg = strings.ToUpper(alg)
	jv := &JWTValidator{alg: alg}
	switch alg {
	case "RS256":
		b, err := os.ReadFile(pubKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read pubkey: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(b)
		if err != nil {
			return nil, fmt.Errorf("parse pubkey: %w", err)
		}
		jv.pubKey = key
	case "HS256":
		if secret == "" {
			return nil, errors.New("hs256 secret required")
		}
		jv.secret = []byte(secret)
	default:
		return nil, errors.New("unsupported alg")
	}
	return jv, nil
}

// Validate returns the user id carried by the token. The userId claim wins,
// sub is the fallback.
func (j *JWTValidator) Validate(token string) (string, error) {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if j.alg == "RS256" {
			return j.pubKey, nil
		}
		return j.secret, nil
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{j.alg}), jwt.WithExpirationRequired())
	tok, err := parser.Parse(token, keyFunc)
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", ErrInvalidToken
	}
	if uid, _ := claims["userId"].(string); uid != "" {
		return uid, nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("userId missing")
	}
	return sub, nil
}

// Claims is what Issuer signs.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens for local clients and tests.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) Generate(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func ParseBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header empty")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}
