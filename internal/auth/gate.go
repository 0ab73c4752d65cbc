package auth

import (
	"context"
	"errors"

	"github.com/fasttodo/fasttodo/internal/store"
)

// ErrInvalidCredentials is returned for both unknown users and wrong
// passwords; the caller cannot tell which check failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Gate verifies username/password pairs against the credential store and
// orchestrates transparent hash migration.
type Gate struct {
	users  store.CredentialStore
	hasher *Hasher
}

func NewGate(users store.CredentialStore, hasher *Hasher) *Gate {
	return &Gate{users: users, hasher: hasher}
}

// Authenticate resolves the user and verifies the password. On success it
// also returns a rehashed digest when the stored one used a deprecated
// algorithm; persisting that digest is the caller's responsibility and must
// never fail the login.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (*store.User, string, error) {
	user, err := g.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	valid, upgraded := g.hasher.VerifyAndUpgrade(password, user.HashedPassword)
	if !valid {
		return nil, "", ErrInvalidCredentials
	}

	return user, upgraded, nil
}
