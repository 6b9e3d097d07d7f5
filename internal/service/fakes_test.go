package service

import (
	"context"
	"sync"
	"time"

	"github.com/X-spec7/book-review-backend/internal/models"
	"github.com/X-spec7/book-review-backend/internal/repository"
)

// In-memory stores mirroring the repository contracts, including the
// conditional-revoke race semantics of Rotate.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]models.RefreshToken)}
}

func (s *fakeTokenStore) Create(_ context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token.CreatedAt = time.Now()
	s.tokens[token.ID] = token
	return nil
}

func (s *fakeTokenStore) FindActive(_ context.Context, now time.Time) ([]models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []models.RefreshToken
	for _, token := range s.tokens {
		if token.Active(now) {
			active = append(active, token)
		}
	}
	return active, nil
}

func (s *fakeTokenStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	if !ok {
		return repository.ErrTokenNotFound
	}
	if token.Revoked {
		return repository.ErrTokenRevoked
	}
	token.Revoked = true
	s.tokens[id] = token
	return nil
}

func (s *fakeTokenStore) Rotate(_ context.Context, predecessorID string, successor models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	predecessor, ok := s.tokens[predecessorID]
	if !ok {
		return repository.ErrTokenNotFound
	}
	if predecessor.Revoked {
		return repository.ErrTokenRevoked
	}

	predecessor.Revoked = true
	predecessor.ReplacedBy = &successor.ID
	s.tokens[predecessorID] = predecessor

	successor.CreatedAt = time.Now()
	s.tokens[successor.ID] = successor
	return nil
}

func (s *fakeTokenStore) get(id string) (models.RefreshToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	return token, ok
}

func (s *fakeTokenStore) put(token models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = token
}

func (s *fakeTokenStore) activeCount(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, token := range s.tokens {
		if token.Active(now) {
			count++
		}
	}
	return count
}
