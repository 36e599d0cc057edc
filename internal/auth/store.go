package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boltin-app/boltin/pkg/plugin"
)

// ErrNotFound is returned when a user or refresh token does not exist.
var ErrNotFound = errors.New("not found")

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore persists users and refresh tokens in the document store.
type UserStore struct {
	users    plugin.Collection
	sessions plugin.Collection
}

// NewUserStore creates a UserStore on the given document store.
func NewUserStore(store plugin.Store) *UserStore {
	return &UserStore{
		users:    store.Collection("users"),
		sessions: store.Collection("sessions"),
	}
}

func decodeUsers(docs [][]byte) ([]User, error) {
	out := make([]User, 0, len(docs))
	for _, doc := range docs {
		var u User
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// CreateUser inserts a new user. Email uniqueness is checked inside the
// collection's Mutate scope. Returns ErrUserExists on a duplicate email.
func (s *UserStore) CreateUser(ctx context.Context, user *User) error {
	email := strings.ToLower(user.Email)
	err := s.users.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		existing, err := decodeUsers(docs)
		if err != nil {
			return nil, err
		}
		for _, u := range existing {
			if strings.ToLower(u.Email) == email {
				return nil, ErrUserExists
			}
		}
		doc, err := json.Marshal(user)
		if err != nil {
			return nil, fmt.Errorf("encode user: %w", err)
		}
		return append(docs, doc), nil
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID returns the user with the given id, or ErrNotFound.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	doc, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	var u User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns the user with the given email (case-insensitive),
// or ErrNotFound.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(email)
	for i := range users {
		if strings.ToLower(users[i].Email) == email {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns all users.
func (s *UserStore) ListUsers(ctx context.Context) ([]User, error) {
	docs, err := s.users.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return decodeUsers(docs)
}

// CountUsers returns the number of user accounts.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	docs, err := s.users.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return len(docs), nil
}

// UpdateUser replaces a user record.
func (s *UserStore) UpdateUser(ctx context.Context, user *User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.users.Update(ctx, user.ID, doc); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the user's last login time.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	user.LastLogin = time.Now().UTC()
	return s.UpdateUser(ctx, user)
}

// DeleteUser removes a user by ID.
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.GetUserByID(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// SaveRefreshToken stores a hashed refresh token.
func (s *UserStore) SaveRefreshToken(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error {
	rt := RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	doc, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	if err := s.sessions.Insert(ctx, id, doc); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns the stored token matching the given hash, or
// ErrNotFound.
func (s *UserStore) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	docs, err := s.sessions.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	for _, doc := range docs {
		var rt RefreshToken
		if err := json.Unmarshal(doc, &rt); err != nil {
			return nil, fmt.Errorf("decode refresh token: %w", err)
		}
		if rt.TokenHash == tokenHash {
			return &rt, nil
		}
	}
	return nil, ErrNotFound
}

// RevokeRefreshToken marks a stored token revoked.
func (s *UserStore) RevokeRefreshToken(ctx context.Context, id string) error {
	doc, err := s.sessions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get refresh token: %w", err)
	}
	if doc == nil {
		return ErrNotFound
	}
	var rt RefreshToken
	if err := json.Unmarshal(doc, &rt); err != nil {
		return fmt.Errorf("decode refresh token: %w", err)
	}
	rt.Revoked = true
	next, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	if err := s.sessions.Update(ctx, id, next); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every stored token for a user.
func (s *UserStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	err := s.sessions.Mutate(ctx, func(docs [][]byte) ([][]byte, error) {
		changed := false
		for i, doc := range docs {
			var rt RefreshToken
			if err := json.Unmarshal(doc, &rt); err != nil {
				return nil, fmt.Errorf("decode refresh token: %w", err)
			}
			if rt.UserID != userID || rt.Revoked {
				continue
			}
			rt.Revoked = true
			next, err := json.Marshal(rt)
			if err != nil {
				return nil, fmt.Errorf("encode refresh token: %w", err)
			}
			docs[i] = next
			changed = true
		}
		if !changed {
			return nil, nil
		}
		return docs, nil
	})
	if err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
