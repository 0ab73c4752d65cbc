package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Hasher hashes and verifies passwords. Argon2id is the primary algorithm;
// bcrypt digests from earlier deployments still verify and are upgraded on
// the fly so that every successful login migrates the stored hash without a
// bulk job.
type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash produces an Argon2id digest of password in the standard
// $argon2id$v=19$m=...,t=...,p=...$salt$hash encoding.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return encodeArgon2(password, salt), nil
}

// VerifyAndUpgrade checks password against digest. When the digest uses a
// deprecated algorithm and verifies, it also returns a fresh primary-
// algorithm digest for the caller to persist; the returned upgrade is empty
// when the digest is already Argon2id. Malformed digests never error, they
// just fail verification.
func (h *Hasher) VerifyAndUpgrade(password, digest string) (valid bool, upgraded string) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return verifyArgon2(password, digest), ""

	case strings.HasPrefix(digest, "$2"):
		if bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) != nil {
			return false, ""
		}
		rehash, err := h.Hash(password)
		if err != nil {
			// Login still succeeds; migration just waits for the next one.
			return true, ""
		}
		return true, rehash

	default:
		return false, ""
	}
}

func encodeArgon2(password string, salt []byte) string {
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func verifyArgon2(password, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
