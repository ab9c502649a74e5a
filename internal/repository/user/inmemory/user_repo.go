package inmemory

import (
	"context"
	"strings"
	"sync"
	"taskManager/internal/models/user"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
)

type UserStorage struct {
	storage    map[uuid.UUID]user.User
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
	mtx        *sync.RWMutex
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		storage:    make(map[uuid.UUID]user.User),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
		mtx:        &sync.RWMutex{},
	}
}

// Create проверяет уникальность имени и почты под той же блокировкой, что и вставку.
func (s *UserStorage) Create(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return repo.ErrConflict
	}
	if _, ok := s.byUsername[u.Username]; ok {
		return repo.ErrConflict
	}

	s.storage[u.ID] = *u
	s.byEmail[email] = u.ID
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *UserStorage) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	u := s.storage[id]
	return &u, nil
}

func (s *UserStorage) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (s *UserStorage) Count() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.storage)
}
