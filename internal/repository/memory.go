package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// MemoryStore is an in-process store with the same contract as Repository.
// It backs tests and local runs without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*model.User
	emails     map[string]string // email -> user id
	tokens     map[string]*model.AuthToken
	activities []*model.ActivityRecord
	activityID map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*model.User),
		emails:     make(map[string]string),
		tokens:     make(map[string]*model.AuthToken),
		activityID: make(map[string]struct{}),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// CreateUser inserts user unless its email is taken.
func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return ErrEmailExists
	}
	s.emails[user.Email] = user.ID
	s.users[user.ID] = cloneUser(user)
	return nil
}

// GetUserByID retrieves a user by id.
func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

// GetUserByEmail retrieves a user by email.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

// UpdateUserLogin writes login metadata.
func (s *MemoryStore) UpdateUserLogin(_ context.Context, id string, upd model.LoginUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	upd.Apply(user)
	return nil
}

// UserCount returns the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// CreateToken stores a token.
func (s *MemoryStore) CreateToken(_ context.Context, token *model.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.ID] = cloneToken(token)
	return nil
}

// GetTokensByPrefix returns active tokens with prefix.
func (s *MemoryStore) GetTokensByPrefix(_ context.Context, prefix string) ([]*model.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.AuthToken
	for _, token := range s.tokens {
		if token.Prefix == prefix && !token.IsRevoked() {
			out = append(out, cloneToken(token))
		}
	}
	return out, nil
}

// ListTokensByUserID returns every token of a user, newest first.
func (s *MemoryStore) ListTokensByUserID(_ context.Context, userID string) ([]*model.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.AuthToken
	for _, token := range s.tokens {
		if token.UserID == userID {
			out = append(out, cloneToken(token))
		}
	}
	slices.SortFunc(out, func(a, b *model.AuthToken) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// TouchToken updates last_used_at.
func (s *MemoryStore) TouchToken(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	if !ok {
		return ErrTokenNotFound
	}
	token.LastUsedAt = &at
	return nil
}

// InsertActivities appends records, skipping ids already stored.
func (s *MemoryStore) InsertActivities(_ context.Context, records []*model.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if _, dup := s.activityID[rec.ID]; dup {
			continue
		}
		s.activityID[rec.ID] = struct{}{}
		cp := *rec
		s.activities = append(s.activities, &cp)
	}
	return nil
}

// ListActivitiesByActor returns the activity of one user in insertion order.
func (s *MemoryStore) ListActivitiesByActor(_ context.Context, actorID string) ([]*model.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.ActivityRecord
	for _, rec := range s.activities {
		if rec.ActorID == actorID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.Phone != nil {
		phone := *u.Phone
		cp.Phone = &phone
	}
	if u.LastLoginIP != nil {
		ip := *u.LastLoginIP
		cp.LastLoginIP = &ip
	}
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		cp.LastLoginAt = &at
	}
	return &cp
}

func cloneToken(t *model.AuthToken) *model.AuthToken {
	cp := *t
	cp.Abilities = slices.Clone(t.Abilities)
	return &cp
}
