package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-process implementation of
// CredentialStore and TodoStore. It backs tests and deployments where the
// external document store is not configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by id
	todos map[string]*Todo // keyed by id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
		todos: make(map[string]*Todo),
	}
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Insert(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, userID, hashedPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[userID]
	if !exists {
		return ErrNotFound
	}
	u.HashedPassword = hashedPassword
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var todos []*Todo
	for _, t := range s.todos {
		if t.UserID != userID {
			continue
		}
		copied := *t
		todos = append(todos, &copied)
		if limit > 0 && len(todos) >= limit {
			break
		}
	}
	return todos, nil
}

func (s *MemoryStore) Find(_ context.Context, userID, todoID string) (*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.todos[todoID]
	if !exists || t.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) InsertTodo(_ context.Context, todo *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	copied := *todo
	s.todos[todo.ID] = &copied
	return nil
}

func (s *MemoryStore) Update(_ context.Context, todo *Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.todos[todo.ID]
	if !exists || existing.UserID != todo.UserID {
		return ErrNotFound
	}

	todo.CreatedAt = existing.CreatedAt
	todo.UpdatedAt = time.Now().UTC()
	copied := *todo
	s.todos[todo.ID] = &copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, todoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.todos[todoID]
	if !exists || t.UserID != userID {
		return ErrNotFound
	}
	delete(s.todos, todoID)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
