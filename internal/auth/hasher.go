package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Hash drivers.
const (
	DriverArgon2id = "argon2id"
	DriverBcrypt   = "bcrypt"
)

// PasswordHasher is the one-way hash and verify primitive.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

// HasherConfig configures a Hasher.
type HasherConfig struct {
	// Driver selects the algorithm for new hashes. Verification always
	// dispatches on the digest format.
	Driver     string
	Argon2     Argon2Params
	BcryptCost int
	// Concurrency bounds simultaneous hash operations. Zero means unbounded.
	Concurrency int64
}

// Hasher hashes with the configured driver and verifies argon2id and bcrypt
// digests. Slow hashes are gated by a weighted semaphore so a burst of
// logins cannot exhaust CPU and memory.
type Hasher struct {
	driver     string
	argon2     Argon2Params
	bcryptCost int
	sem        *semaphore.Weighted
}

// NewHasher creates a Hasher from cfg.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverArgon2id
	}
	if driver != DriverArgon2id && driver != DriverBcrypt {
		return nil, fmt.Errorf("unsupported hash driver %q", cfg.Driver)
	}

	params := cfg.Argon2
	if params == (Argon2Params{}) {
		params = DefaultArgon2Params
	}

	h := &Hasher{
		driver:     driver,
		argon2:     params,
		bcryptCost: cfg.BcryptCost,
	}
	if cfg.Concurrency > 0 {
		h.sem = semaphore.NewWeighted(cfg.Concurrency)
	}
	return h, nil
}

// Driver returns the algorithm used for new hashes.
func (h *Hasher) Driver() string {
	return h.driver
}

// Hash returns a new digest of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if h.driver == DriverBcrypt {
		return hashBcrypt(plaintext, h.bcryptCost)
	}
	return hashArgon2id(plaintext, h.argon2)
}

// Verify checks plaintext against digest.
// A mismatch is (false, nil); an unparseable digest is ErrInvalidHash.
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	switch {
	case strings.HasPrefix(digest, argon2Prefix):
		return verifyArgon2id(plaintext, digest)
	case isBcryptHash(digest):
		return verifyBcrypt(plaintext, digest)
	default:
		return false, ErrInvalidHash
	}
}

func (h *Hasher) acquire(ctx context.Context) (func(), error) {
	if h.sem == nil {
		return func() {}, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire hash slot: %w", err)
	}
	return func() { h.sem.Release(1) }, nil
}
