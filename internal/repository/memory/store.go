// Package memory holds process-local implementations of the user and message
// repositories. It backs the server when no DATABASE_URL is configured and
// serves as the collaborator in service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iamasit07/realtime-chat/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	users    map[int64]*domain.Identity
	messages []domain.Message
	nextUser int64
	nextMsg  int64
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: make(map[int64]*domain.Identity),
		now:   time.Now,
	}
}

func clone(u *domain.Identity) *domain.Identity {
	c := *u
	return &c
}

func (s *Store) CreateUser(ctx context.Context, u *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
		if u.Email != "" && existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}

	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	s.nextUser++
	u.ID = s.nextUser
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = clone(u)
	return nil
}

func (s *Store) find(match func(*domain.Identity) bool) *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return clone(u)
		}
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return s.find(func(u *domain.Identity) bool { return u.Username == username }), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	if email == "" {
		return nil, nil
	}
	return s.find(func(u *domain.Identity) bool { return u.Email == email }), nil
}

func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error) {
	if googleID == "" {
		return nil, nil
	}
	return s.find(func(u *domain.Identity) bool { return u.GoogleID == googleID }), nil
}

func (s *Store) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*domain.Identity, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return s.find(func(u *domain.Identity) bool { return u.RefreshToken == refreshToken }), nil
}

func (s *Store) update(userID int64, apply func(*domain.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		apply(u)
		u.UpdatedAt = s.now()
	}
}

func (s *Store) SetRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	s.update(userID, func(u *domain.Identity) { u.RefreshToken = refreshToken })
	return nil
}

func (s *Store) ClearRefreshToken(ctx context.Context, userID int64) error {
	s.update(userID, func(u *domain.Identity) { u.RefreshToken = "" })
	return nil
}

func (s *Store) LinkGoogleID(ctx context.Context, userID int64, googleID string) error {
	s.update(userID, func(u *domain.Identity) { u.GoogleID = googleID })
	return nil
}

// SetActive flips the active flag; there is no HTTP surface for it, operators
// and tests use it directly.
func (s *Store) SetActive(ctx context.Context, userID int64, active bool) error {
	s.update(userID, func(u *domain.Identity) { u.IsActive = active })
	return nil
}

func (s *Store) ClearInactiveRefreshTokens(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cleared int64
	for _, u := range s.users {
		if !u.IsActive && u.RefreshToken != "" {
			u.RefreshToken = ""
			u.UpdatedAt = s.now()
			cleared++
		}
	}
	return cleared, nil
}

func (s *Store) SaveMessage(ctx context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	m.ID = s.nextMsg
	m.CreatedAt = s.now()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, userID int64, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Message{}
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		visible := m.SenderID == userID || m.IsBroadcast || (m.ReceiverID != nil && *m.ReceiverID == userID)
		if !visible {
			continue
		}
		if sender, ok := s.users[m.SenderID]; ok {
			m.Sender = sender.Username
		}
		if m.ReceiverID != nil {
			if receiver, ok := s.users[*m.ReceiverID]; ok {
				m.Receiver = receiver.Username
			}
		}
		out = append(out, m)
	}

	// Insertion order already matches id order; keep created desc, id desc.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
