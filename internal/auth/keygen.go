package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token format: bb_{env}_{prefix}_{secret}
// Example: bb_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenPrefixLen = 6  // Visible prefix length (hex encoded 3 bytes)
	TokenSecretLen = 32 // Secret length (hex encoded 16 bytes)
)

// Environment indicators for the token prefix.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	// ErrInvalidTokenFormat indicates the token format is invalid.
	ErrInvalidTokenFormat = errors.New("invalid token format")
	tokenFormatRegex      = regexp.MustCompile(`^bb_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)
)

// GeneratedToken contains the parts of a newly generated bearer token.
type GeneratedToken struct {
	Plaintext string // Full token (show once only)
	Hash      string // Digest for storage
	Prefix    string // 6-char visible prefix
}

// GenerateToken creates a new bearer token for env and hashes it with h.
func GenerateToken(ctx context.Context, env string, h PasswordHasher) (*GeneratedToken, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive
	}

	prefixBytes := make([]byte, 3)
	if _, err := rand.Read(prefixBytes); err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	prefix := hex.EncodeToString(prefixBytes)

	secretBytes := make([]byte, 16)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	plaintext := fmt.Sprintf("bb_%s_%s_%s", env, prefix, secret)

	hash, err := h.Hash(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    prefix,
	}, nil
}

// ParsedToken contains the parsed parts of a bearer token.
type ParsedToken struct {
	Env    string
	Prefix string
	Secret string
}

// ParseToken extracts the components from a plaintext token.
func ParseToken(token string) (*ParsedToken, error) {
	matches := tokenFormatRegex.FindStringSubmatch(token)
	if matches == nil {
		return nil, ErrInvalidTokenFormat
	}

	return &ParsedToken{
		Env:    matches[1],
		Prefix: matches[2],
		Secret: matches[3],
	}, nil
}

// ValidateTokenFormat checks if the token matches the expected format.
func ValidateTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}

// EnvForAppEnv maps APP_ENV onto the token environment segment.
func EnvForAppEnv(appEnv string) string {
	if appEnv == "production" {
		return EnvLive
	}
	return EnvTest
}
