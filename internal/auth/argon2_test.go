package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// lightParams keeps argon2 fast in tests.
var lightParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func newTestHasher(t *testing.T, driver string) *Hasher {
	t.Helper()
	h, err := NewHasher(HasherConfig{Driver: driver, Argon2: lightParams, BcryptCost: 4})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHash_Argon2Format(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t, DriverArgon2id)
	hash, err := h.Hash(context.Background(), "secret-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("Hash should be in PHC format, got: %s", hash)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got: %d", len(parts))
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=1024,t=1,p=1" {
		t.Errorf("Expected m=1024,t=1,p=1, got: %s", parts[3])
	}
}

func TestHash_DefaultParams(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(HasherConfig{})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	if h.Driver() != DriverArgon2id {
		t.Errorf("Driver() = %q, want %q", h.Driver(), DriverArgon2id)
	}
	if h.argon2 != DefaultArgon2Params {
		t.Errorf("argon2 params = %+v, want defaults", h.argon2)
	}
}

func TestHash_Uniqueness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newTestHasher(t, DriverArgon2id)

	hash1, err := h.Hash(ctx, "the_same_password_12345")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	hash2, err := h.Hash(ctx, "the_same_password_12345")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// Same password should produce different hashes (different salts)
	if hash1 == hash2 {
		t.Error("Same password should produce different hashes due to random salt")
	}

	match1, _ := h.Verify(ctx, "the_same_password_12345", hash1)
	match2, _ := h.Verify(ctx, "the_same_password_12345", hash2)
	if !match1 || !match2 {
		t.Error("Both hashes should verify correctly")
	}
}

func TestVerify_Drivers(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{DriverArgon2id, DriverBcrypt} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			h := newTestHasher(t, driver)

			hash, err := h.Hash(ctx, "password123")
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}

			match, err := h.Verify(ctx, "password123", hash)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if !match {
				t.Error("Correct password should verify")
			}

			match, err = h.Verify(ctx, "password124", hash)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if match {
				t.Error("Wrong password should not verify")
			}
		})
	}
}

func TestVerify_CrossDriver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bcryptHasher := newTestHasher(t, DriverBcrypt)
	argonHasher := newTestHasher(t, DriverArgon2id)

	legacy, err := bcryptHasher.Hash(ctx, "password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// A hasher configured for argon2id still accepts bcrypt digests.
	match, err := argonHasher.Verify(ctx, "password123", legacy)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !match {
		t.Error("bcrypt digest should verify under argon2id driver")
	}
}

func TestVerify_PHPBcryptPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newTestHasher(t, DriverBcrypt)

	hash, err := h.Hash(ctx, "password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	// PHP's password_hash emits $2y$, which is the same algorithm.
	phpHash := "$2y$" + strings.TrimPrefix(hash, "$2a$")

	match, err := h.Verify(ctx, "password123", phpHash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !match {
		t.Error("$2y$ digest should verify")
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t, DriverArgon2id)

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"plain text", "not-a-hash", ErrInvalidHash},
		{"too few parts", "$argon2id$v=19$m=1024", ErrInvalidHash},
		{"bad version", "$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA", ErrIncompatibleVersion},
		{"bad params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA", ErrInvalidHash},
		{"broken bcrypt", "$2y$10$short", ErrInvalidHash},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := h.Verify(context.Background(), "password", tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if match {
				t.Error("Invalid hash should never match")
			}
		})
	}
}

func TestNewHasher_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	if _, err := NewHasher(HasherConfig{Driver: "md5"}); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestHasher_ConcurrencyHonoursContext(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(HasherConfig{Argon2: lightParams, Concurrency: 1})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	// Occupy the only slot.
	release, err := h.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := h.Hash(ctx, "password"); err == nil {
		t.Error("Hash should fail when no slot frees up before the deadline")
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	a := QuickHash("bb_test_abcdef_0123456789abcdef0123456789abcdef")
	b := QuickHash("bb_test_abcdef_0123456789abcdef0123456789abcdef")
	c := QuickHash("bb_test_abcdef_0123456789abcdef0123456789abcdee")

	if a != b {
		t.Error("QuickHash should be deterministic")
	}
	if a == c {
		t.Error("QuickHash should differ for different inputs")
	}
	if len(a) != 32 {
		t.Errorf("QuickHash length = %d, want 32", len(a))
	}
}
