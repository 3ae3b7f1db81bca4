package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "qcheck-api"

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongTokenUse = errors.New("token used for the wrong purpose")
)

type Claims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	JTI       string `json:"jti"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the two token kinds the API hands out: a short
// lived access token carried in the Authorization header and a longer lived
// refresh token carried in a cookie.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL time.Duration, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) GenerateAccessToken(userID, email, role string) (string, error) {
	raw, _, _, err := m.sign(userID, email, role, tokenTypeAccess, m.accessTTL)
	return raw, err
}

func (m *Manager) GenerateRefreshToken(userID, email, role string) (raw string, jti string, expiresAt time.Time, err error) {
	return m.sign(userID, email, role, tokenTypeRefresh, m.refreshTTL)
}

func (m *Manager) sign(userID, email, role, typ string, ttl time.Duration) (string, string, time.Time, error) {
	now := time.Now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: typ,
		JTI:       jti,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return raw, jti, expiresAt, nil
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenTypeAccess {
		return nil, ErrWrongTokenUse
	}

	return claims, nil
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenTypeRefresh {
		return nil, ErrWrongTokenUse
	}

	if claims.JTI == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashRefreshToken derives the deterministic HMAC digest stored in place of
// the raw refresh token. Lookups recompute it; the raw token never hits disk.
func (m *Manager) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
