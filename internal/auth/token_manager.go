package auth

import (
	"errors"
	"time"

	"dropship-service/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidToken     = errors.New("invalid token")
)

// Claims are the structured claims extracted from a validated token.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	Role      models.Role
	TokenType TokenType
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair contains an access/refresh pair with expiries.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenManager signs and validates auth tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if issuer == "" {
		return nil, errors.New("token issuer must not be empty")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl values must be positive")
	}

	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) IssueTokenPair(user *models.User) (TokenPair, error) {
	issuedAt := m.now().UTC()
	accessExpiry := issuedAt.Add(m.accessTTL)
	refreshExpiry := issuedAt.Add(m.refreshTTL)

	accessToken, err := m.sign(user, TokenTypeAccess, issuedAt, accessExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := m.sign(user, TokenTypeRefresh, issuedAt, refreshExpiry)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (m *TokenManager) sign(user *models.User, tokenType TokenType, issuedAt, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) ParseAndValidate(rawToken string, expectedType TokenType) (Claims, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(rawToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if !claims.VerifyIssuer(m.issuer, true) || claims.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.TokenType != string(expectedType) {
		return Claims{}, ErrInvalidTokenType
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		UserID:    userID,
		Email:     claims.Email,
		Role:      role,
		TokenType: expectedType,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
