package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("record already exists")
)

// CredentialStore is the user-record collaborator consumed by the
// authentication layer. UpdatePasswordHash is the single-document update
// used by transparent hash migration.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, user *User) error
	UpdatePasswordHash(ctx context.Context, userID, hashedPassword string) error
}

// TodoStore is the todo collaborator consumed by the CRUD routes.
type TodoStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*Todo, error)
	Find(ctx context.Context, userID, todoID string) (*Todo, error)
	InsertTodo(ctx context.Context, todo *Todo) error
	Update(ctx context.Context, todo *Todo) error
	Delete(ctx context.Context, userID, todoID string) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
