package memory

import (
	"context"
	"sync"

	"github.com/shoplite/authcore/internal/models"
	"github.com/shoplite/authcore/internal/storage"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (m *UserRepository) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return nil, storage.ErrEmailTaken
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return &user, nil
}

func (m *UserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := m.byID[id]
	return &user, nil
}

func (m *UserRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

// DeleteUser exists for tests that exercise the owner-vanished path during
// rotation; the service itself never deletes users.
func (m *UserRepository) DeleteUser(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byEmail, user.Email)
	delete(m.byID, id)
}

// Storage composes the in-memory repositories behind storage.Storage.
type Storage struct {
	*UserRepository
	*SessionRepository
}

func NewStorage() *Storage {
	return &Storage{
		UserRepository:    NewUserRepository(),
		SessionRepository: NewSessionRepository(),
	}
}
