package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/pkg/auth"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.Identity) error
	GetUserByUsername(ctx context.Context, username string) (*domain.Identity, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error)
	GetUserByRefreshToken(ctx context.Context, refreshToken string) (*domain.Identity, error)
	SetRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	ClearRefreshToken(ctx context.Context, userID int64) error
	LinkGoogleID(ctx context.Context, userID int64, googleID string) error
}

type RegisterRequest struct {
	Username             string
	Password             string
	ConfirmationPassword string
	Email                string
	FullName             string
}

// ExternalProfile is what an external identity provider tells us about a user.
type ExternalProfile struct {
	GoogleID string
	Email    string
	Name     string
}

// AuthService issues, refreshes and revokes session tokens and admits
// WebSocket connections.
type AuthService struct {
	users      UserRepository
	tokens     *auth.TokenService
	bcryptCost int
}

func NewAuthService(users UserRepository, tokens *auth.TokenService, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

func subjectOf(u *domain.Identity) auth.Subject {
	return auth.Subject{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// Register creates a new identity after validating username, password and email.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.Identity, error) {
	username := domain.NormalizeUsername(req.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := auth.ValidatePasswords(req.Password, req.ConfirmationPassword); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	email, err := domain.NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &domain.Identity{
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		Role:         domain.RoleUser,
		IsActive:     true,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, identity); err != nil {
		return nil, err
	}

	log.Printf("[AUTH] Registered user %s (id=%d)", identity.Username, identity.ID)
	return identity.Public(), nil
}

// Login checks credentials and issues a fresh token pair, replacing any
// refresh token the identity held before.
func (s *AuthService) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	identity, err := s.users.GetUserByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}

	hash := ""
	if identity != nil {
		hash = identity.PasswordHash
	}
	if !auth.CheckPasswordHash(password, hash) {
		return nil, domain.ErrAuthFailed
	}
	if !identity.IsActive {
		return nil, domain.ErrInactiveIdentity
	}

	return s.issueAndStore(ctx, identity)
}

// LoginExternal signs in an identity vouched for by Google, linking or
// creating it as needed.
func (s *AuthService) LoginExternal(ctx context.Context, profile ExternalProfile) (*auth.TokenPair, error) {
	if profile.GoogleID == "" {
		return nil, domain.ErrAuthFailed
	}

	identity, err := s.users.GetUserByGoogleID(ctx, profile.GoogleID)
	if err != nil {
		return nil, err
	}

	email, _ := domain.NormalizeEmail(profile.Email)
	if identity == nil && email != "" {
		identity, err = s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if identity != nil {
			if err := s.users.LinkGoogleID(ctx, identity.ID, profile.GoogleID); err != nil {
				return nil, err
			}
			identity.GoogleID = profile.GoogleID
			log.Printf("[OAUTH] Linked Google account to %s", identity.Username)
		}
	}

	if identity == nil {
		identity, err = s.createExternal(ctx, profile, email)
		if err != nil {
			return nil, err
		}
	}

	if !identity.IsActive {
		return nil, domain.ErrInactiveIdentity
	}
	return s.issueAndStore(ctx, identity)
}

func (s *AuthService) createExternal(ctx context.Context, profile ExternalProfile, email string) (*domain.Identity, error) {
	// The account has no usable password until the user sets one.
	secret, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(secret, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	base := usernameBase(email)
	for attempt := 0; attempt < 100; attempt++ {
		username := base
		if attempt > 0 {
			username = base + strconv.Itoa(attempt)
		}
		identity := &domain.Identity{
			Username:     username,
			FullName:     profile.Name,
			Email:        email,
			Role:         domain.RoleUser,
			IsActive:     true,
			GoogleID:     profile.GoogleID,
			PasswordHash: hash,
		}
		err := s.users.CreateUser(ctx, identity)
		if errors.Is(err, domain.ErrUsernameTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Printf("[OAUTH] Created user %s from Google account", identity.Username)
		return identity, nil
	}
	return nil, fmt.Errorf("%w: could not derive a free username from %q", domain.ErrUsernameTaken, base)
}

// usernameBase keeps the ASCII alphanumerics of the email local part.
func usernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, ch := range strings.ToLower(local) {
		if ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	base := b.String()
	if len(base) > 40 {
		base = base[:40]
	}
	for len(base) < 3 || base == domain.BroadcastReceiver {
		base += "user"
	}
	return base
}

// Refresh re-issues an access token for the identity behind token, which may
// be an access token (expired or not) or the refresh token itself. The stored
// refresh token is kept.
func (s *AuthService) Refresh(ctx context.Context, token, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}

	var identity *domain.Identity
	presented := refreshToken
	switch claims.TokenType {
	case auth.TokenTypeAccess:
		identity, err = s.users.GetUserByUsername(ctx, claims.Username)
	case auth.TokenTypeRefresh:
		presented = token
		identity, err = s.users.GetUserByRefreshToken(ctx, token)
	default:
		return nil, auth.ErrWrongTokenType
	}
	if err != nil {
		return nil, err
	}
	if identity == nil {
		// No identity holds this refresh token: signed out or replaced by a newer login.
		if claims.TokenType == auth.TokenTypeRefresh {
			return nil, domain.ErrAuthFailed
		}
		return nil, domain.ErrUnknownIdentity
	}
	if !identity.SignedIn() {
		return nil, domain.ErrAuthFailed
	}
	if presented != "" && presented != identity.RefreshToken {
		return nil, domain.ErrAuthFailed
	}

	pair, err := s.tokens.Issue(subjectOf(identity), identity.RefreshToken)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout clears the stored refresh token of the identity named in accessToken.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Decode(accessToken)
	if err != nil {
		return err
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return auth.ErrWrongTokenType
	}

	identity, err := s.users.GetUserByUsername(ctx, claims.Username)
	if err != nil {
		return err
	}
	if identity == nil {
		return domain.ErrUnknownIdentity
	}
	if !identity.SignedIn() {
		return domain.ErrAuthFailed
	}

	if err := s.users.ClearRefreshToken(ctx, identity.ID); err != nil {
		return err
	}
	log.Printf("[AUTH] User %s logged out", identity.Username)
	return nil
}

// AdmitConnection validates an access token for a WebSocket connection. It
// never touches storage.
func (s *AuthService) AdmitConnection(token string) (*domain.Identity, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return nil, err
	}
	subject := claims.AsSubject()
	return &domain.Identity{
		ID:       subject.UserID,
		Username: subject.Username,
		FullName: subject.FullName,
		Email:    subject.Email,
		Role:     subject.Role,
		IsActive: subject.IsActive,
	}, nil
}

// CurrentUser resolves the stored identity behind a verified access token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.Identity, error) {
	admitted, err := s.AdmitConnection(token)
	if err != nil {
		return nil, err
	}
	identity, err := s.users.GetUserByUsername(ctx, admitted.Username)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, domain.ErrUnknownIdentity
	}
	return identity.Public(), nil
}

func (s *AuthService) issueAndStore(ctx context.Context, identity *domain.Identity) (*auth.TokenPair, error) {
	pair, err := s.tokens.Issue(subjectOf(identity), "")
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, identity.ID, pair.RefreshToken); err != nil {
		return nil, err
	}
	log.Printf("[AUTH] User %s logged in", identity.Username)
	return pair, nil
}
