package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/cryptochain/exchange/internal/models"
)

const testSecret = "test-secret"

// memStore is an in-memory Store so the auth service can be tested
// without a database.
type memStore struct {
	byID    map[int]*models.User
	byEmail map[string]*models.User
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[int]*models.User), byEmail: make(map[string]*models.User)}
}

func (m *memStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, models.ErrDuplicateEmail
	}
	m.nextID++
	user := &models.User{
		ID: m.nextID, Name: name, Email: email, PasswordHash: passwordHash,
		Balance: 10000, CreatedAt: time.Now(),
	}
	m.byID[user.ID] = user
	m.byEmail[email] = user
	return user, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

var _ Store = (*memStore)(nil)

func TestService_Signup(t *testing.T) {
	tests := []struct {
		name        string
		userName    string
		email       string
		password    string
		expectError bool
	}{
		{
			name:     "Success",
			userName: "Alice",
			email:    "alice@test.dev",
			password: "password123",
		},
		{
			name:        "EmptyName",
			userName:    "",
			email:       "alice@test.dev",
			password:    "password123",
			expectError: true,
		},
		{
			name:        "EmptyEmail",
			userName:    "Alice",
			email:       "",
			password:    "password123",
			expectError: true,
		},
		{
			name:        "EmptyPassword",
			userName:    "Alice",
			email:       "alice@test.dev",
			password:    "",
			expectError: true,
		},
		{
			name:        "LongPassword",
			userName:    "Alice",
			email:       "alice@test.dev",
			password:    strings.Repeat("p", 1000),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(newMemStore(), testSecret)

			user, token, err := s.Signup(context.Background(), tt.userName, tt.email, tt.password)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if user.Email != tt.email {
				t.Errorf("expected email %q, got %q", tt.email, user.Email)
			}
			if user.Balance != 10000 {
				t.Errorf("expected starting balance 10000, got %v", user.Balance)
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.password)); err != nil {
				t.Errorf("password hash mismatch")
			}

			// The issued token must resolve straight back to the account
			resolved, err := s.UserFromToken(context.Background(), token)
			if err != nil {
				t.Errorf("issued token rejected: %v", err)
			} else if resolved.ID != user.ID {
				t.Errorf("expected user ID %d, got %d", user.ID, resolved.ID)
			}
		})
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	s := NewService(newMemStore(), testSecret)

	if _, _, err := s.Signup(context.Background(), "Alice", "alice@test.dev", "password123"); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	_, _, err := s.Signup(context.Background(), "Also Alice", "alice@test.dev", "otherpass")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err != models.ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_Login(t *testing.T) {
	s := NewService(newMemStore(), testSecret)
	s.Signup(context.Background(), "Alice", "alice@test.dev", "password123")

	tests := []struct {
		name        string
		email       string
		password    string
		expectError bool
	}{
		{
			name:     "Success",
			email:    "alice@test.dev",
			password: "password123",
		},
		{
			name:        "WrongPassword",
			email:       "alice@test.dev",
			password:    "wrongpass",
			expectError: true,
		},
		{
			name:        "UnknownEmail",
			email:       "bob@test.dev",
			password:    "password123",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, token, err := s.Login(context.Background(), tt.email, tt.password)
			if tt.expectError {
				if err != ErrInvalidCredentials {
					t.Errorf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if user.Email != tt.email {
				t.Errorf("expected email %q, got %q", tt.email, user.Email)
			}

			// Verify claims and the 7-day expiry
			parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
				return []byte(testSecret), nil
			})
			if err != nil {
				t.Fatalf("invalid token: %v", err)
			}
			claims := parsed.Claims.(jwt.MapClaims)
			if int(claims["user_id"].(float64)) != user.ID {
				t.Errorf("wrong user_id claim")
			}
			exp := time.Unix(int64(claims["exp"].(float64)), 0)
			want := time.Now().Add(TokenTTL)
			if exp.Before(want.Add(-time.Minute)) || exp.After(want.Add(time.Minute)) {
				t.Errorf("expected expiry around %v, got %v", want, exp)
			}
		})
	}
}

func TestService_UserFromToken(t *testing.T) {
	store := newMemStore()
	s := NewService(store, testSecret)
	user, token, err := s.Signup(context.Background(), "Alice", "alice@test.dev", "password123")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredTokenStr, _ := expiredToken.SignedString([]byte(testSecret))
	invalidToken, _ := expiredToken.SignedString([]byte("wrong-key"))

	orphanToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 999,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	orphanTokenStr, _ := orphanToken.SignedString([]byte(testSecret))

	tests := []struct {
		name        string
		token       string
		expectError bool
	}{
		{
			name:  "Success",
			token: token,
		},
		{
			name:        "ExpiredToken",
			token:       expiredTokenStr,
			expectError: true,
		},
		{
			name:        "InvalidSignature",
			token:       invalidToken,
			expectError: true,
		},
		{
			name:        "NonExistentAccount",
			token:       orphanTokenStr,
			expectError: true,
		},
		{
			name:        "Malformed",
			token:       "not.a.token",
			expectError: true,
		},
		{
			name:        "EmptyToken",
			token:       "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := s.UserFromToken(context.Background(), tt.token)
			if tt.expectError {
				if err != ErrInvalidToken {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if resolved.ID != user.ID {
				t.Errorf("expected user ID %d, got %d", user.ID, resolved.ID)
			}
		})
	}

	// A valid token for a since-deleted account must be rejected too
	delete(store.byID, user.ID)
	if _, err := s.UserFromToken(context.Background(), token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for deleted account, got %v", err)
	}
}
