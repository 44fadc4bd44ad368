package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"hrops/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssuedTokens is a freshly minted access/refresh pair.
type IssuedTokens struct {
	AccessToken  string
	RefreshToken string
	JTI          string
	ExpiresAt    time.Time
}

// TokenIssuer signs access tokens and generates opaque refresh tokens.
type TokenIssuer struct {
	secret        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenIssuer(secret string, accessExpiry, refreshExpiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:        secret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (t *TokenIssuer) AccessExpiry() time.Duration  { return t.accessExpiry }
func (t *TokenIssuer) RefreshExpiry() time.Duration { return t.refreshExpiry }

// Issue creates a signed access token carrying the employee's identity
// and a random refresh token. The JTI ties the access token to its
// session so revocation can blacklist it.
func (t *TokenIssuer) Issue(user *domain.User) (*IssuedTokens, error) {
	now := time.Now()
	expiresAt := now.Add(t.accessExpiry)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"company_id": user.CompanyID.String(),
		"email":      user.Email,
		"role":       string(user.Role),
		"jti":        jti,
		"exp":        expiresAt.Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(t.secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := generateRandomToken(32)
	if err != nil {
		return nil, err
	}

	return &IssuedTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func generateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
