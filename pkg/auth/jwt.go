package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenMalformed = errors.New("could not validate credentials")
	ErrWrongTokenType = errors.New("could not validate type access token")
	ErrTokenExpired   = errors.New("access token expired")
)

// Subject carries the public identity fields embedded in an access token.
type Subject struct {
	UserID   int64
	Username string
	FullName string
	Email    string
	Role     string
	IsActive bool
}

// Claims is the payload of both token kinds. Refresh tokens only carry
// TokenType, CorrelationID and IssuedAt.
type Claims struct {
	TokenType     string `json:"token_type"`
	CorrelationID string `json:"jwi"`
	UserID        int64  `json:"id,omitempty"`
	Username      string `json:"username,omitempty"`
	FullName      string `json:"fullname,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	IsActive      *bool  `json:"is_active,omitempty"`
	jwt.RegisteredClaims
}

// AsSubject returns the identity fields of access claims.
func (c *Claims) AsSubject() Subject {
	active := c.IsActive != nil && *c.IsActive
	return Subject{
		UserID:   c.UserID,
		Username: c.Username,
		FullName: c.FullName,
		Email:    c.Email,
		Role:     c.Role,
		IsActive: active,
	}
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenService issues and checks HMAC-signed session tokens with a single
// process-wide key.
type TokenService struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenService returns a TokenService signing with secret using the named
// HMAC algorithm (HS256, HS384 or HS512).
func NewTokenService(secret, algorithm string, accessTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &TokenService{
		secret:    []byte(secret),
		method:    method,
		accessTTL: accessTTL,
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source; used by tests to move past expiry.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue mints a new access token for subject. When previousRefreshToken is
// non-empty it is returned unchanged instead of minting a new one.
func (s *TokenService) Issue(subject Subject, previousRefreshToken string) (*TokenPair, error) {
	correlationID := uuid.NewString()
	now := s.now()
	active := subject.IsActive

	access := &Claims{
		TokenType:     TokenTypeAccess,
		CorrelationID: correlationID,
		UserID:        subject.UserID,
		Username:      subject.Username,
		FullName:      subject.FullName,
		Email:         subject.Email,
		Role:          subject.Role,
		IsActive:      &active,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	accessToken, err := s.sign(access)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := previousRefreshToken
	if refreshToken == "" {
		refresh := &Claims{
			TokenType:     TokenTypeRefresh,
			CorrelationID: correlationID,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt: jwt.NewNumericDate(now),
			},
		}
		refreshToken, err = s.sign(refresh)
		if err != nil {
			return nil, fmt.Errorf("failed to sign refresh token: %w", err)
		}
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}, nil
}

// VerifyAccess checks signature, type and expiry of an access token. It never
// consults storage.
func (s *TokenService) VerifyAccess(tokenString string) (*Claims, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Decode checks only the signature and encoding of a token of either kind.
func (s *TokenService) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (s *TokenService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	return token.SignedString(s.secret)
}
