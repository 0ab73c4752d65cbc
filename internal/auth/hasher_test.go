package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherHash(t *testing.T) {
	h := NewHasher()

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$") {
		t.Errorf("Got digest %q, want argon2id prefix", digest)
	}

	t.Run("digests are salted", func(t *testing.T) {
		other, err := h.Hash("correct horse battery staple")
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
		if other == digest {
			t.Error("Two hashes of the same password should differ")
		}
	})
}

func TestVerifyAndUpgrade(t *testing.T) {
	h := NewHasher()

	t.Run("argon2id digest verifies without upgrade", func(t *testing.T) {
		digest, err := h.Hash("secret")
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}

		valid, upgraded := h.VerifyAndUpgrade("secret", digest)
		if !valid {
			t.Error("Expected digest to verify")
		}
		if upgraded != "" {
			t.Errorf("Got upgrade %q, want none for a primary-algorithm digest", upgraded)
		}
	})

	t.Run("argon2id digest rejects wrong password", func(t *testing.T) {
		digest, _ := h.Hash("secret")
		valid, _ := h.VerifyAndUpgrade("not-the-secret", digest)
		if valid {
			t.Error("Wrong password should not verify")
		}
	})

	t.Run("bcrypt digest verifies and upgrades", func(t *testing.T) {
		bc, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt setup failed: %v", err)
		}

		valid, upgraded := h.VerifyAndUpgrade("legacy-password", string(bc))
		if !valid {
			t.Fatal("Expected bcrypt digest to verify")
		}
		if !strings.HasPrefix(upgraded, "$argon2id$") {
			t.Fatalf("Got upgrade %q, want argon2id digest", upgraded)
		}

		// Upgraded digest must verify on its own, with no further upgrade.
		valid, again := h.VerifyAndUpgrade("legacy-password", upgraded)
		if !valid {
			t.Error("Upgraded digest should verify")
		}
		if again != "" {
			t.Error("Upgraded digest should not be upgraded again")
		}
	})

	t.Run("bcrypt digest rejects wrong password without upgrade", func(t *testing.T) {
		bc, _ := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
		valid, upgraded := h.VerifyAndUpgrade("wrong", string(bc))
		if valid {
			t.Error("Wrong password should not verify")
		}
		if upgraded != "" {
			t.Error("Failed verification should not produce an upgrade")
		}
	})

	t.Run("malformed digests fail closed", func(t *testing.T) {
		for _, digest := range []string{
			"",
			"plaintext",
			"$argon2id$garbage",
			"$argon2id$v=19$m=65536,t=3,p=4$!!!$!!!",
			"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
			"$md5$abcdef",
		} {
			valid, upgraded := h.VerifyAndUpgrade("secret", digest)
			if valid {
				t.Errorf("Digest %q should not verify", digest)
			}
			if upgraded != "" {
				t.Errorf("Digest %q should not produce an upgrade", digest)
			}
		}
	})
}
