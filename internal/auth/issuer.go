package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// ErrInvalidToken is returned for any token that does not resolve to an
// active record. The cause is deliberately not distinguished.
var ErrInvalidToken = errors.New("invalid or revoked token")

// TokenStore persists issued tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, token *model.AuthToken) error
	GetTokensByPrefix(ctx context.Context, prefix string) ([]*model.AuthToken, error)
	TouchToken(ctx context.Context, id string, at time.Time) error
}

// IssuedToken is the result of minting: the plaintext shown once, and the
// stored record which only holds the digest.
type IssuedToken struct {
	Plaintext string
	Token     *model.AuthToken
}

// TokenIssuer mints and resolves opaque bearer tokens.
type TokenIssuer struct {
	store  TokenStore
	hasher PasswordHasher
	env    string
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(store TokenStore, hasher PasswordHasher, env string) *TokenIssuer {
	return &TokenIssuer{
		store:  store,
		hasher: hasher,
		env:    env,
		now:    time.Now,
	}
}

// Mint creates a new token for userID labelled name.
// Existing tokens of the user are left untouched.
func (i *TokenIssuer) Mint(ctx context.Context, userID, name string) (*IssuedToken, error) {
	generated, err := GenerateToken(ctx, i.env, i.hasher)
	if err != nil {
		return nil, err
	}

	token := &model.AuthToken{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: generated.Hash,
		Prefix:    generated.Prefix,
		Abilities: []string{model.AbilityAll},
		CreatedAt: i.now().UTC(),
	}

	if err := i.store.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	return &IssuedToken{Plaintext: generated.Plaintext, Token: token}, nil
}

// Resolve finds the active token matching plaintext.
// Candidates are looked up by visible prefix and verified against their
// digests, which handles prefix collisions.
func (i *TokenIssuer) Resolve(ctx context.Context, plaintext string) (*model.AuthToken, error) {
	parsed, err := ParseToken(plaintext)
	if err != nil {
		return nil, ErrInvalidToken
	}

	candidates, err := i.store.GetTokensByPrefix(ctx, parsed.Prefix)
	if err != nil {
		return nil, fmt.Errorf("lookup tokens: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.IsRevoked() {
			continue
		}
		match, err := i.hasher.Verify(ctx, plaintext, candidate.TokenHash)
		if err != nil {
			continue
		}
		if match {
			return candidate, nil
		}
	}

	return nil, ErrInvalidToken
}

// Touch records token use.
func (i *TokenIssuer) Touch(ctx context.Context, id string) error {
	return i.store.TouchToken(ctx, id, i.now().UTC())
}
