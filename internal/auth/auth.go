// Package auth issues and validates the bearer tokens the HTTP API runs on.
// The signed token string doubles as the session key: login creates the
// empty session memory record under it, so a token that validates always
// had a session at some point and an expired session simply reads as gone.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

const issuer = "studyhall-platform"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login responses never reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken covers malformed, forged, and expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the token claims the API consumes.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Grade string `json:"grade,omitempty"`
}

// UserStore resolves login identities.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	SubjectsForUser(ctx context.Context, userID string) ([]string, error)
}

// SessionCreator arms a fresh session memory record under a token.
type SessionCreator interface {
	CreateStudent(ctx context.Context, token string) (*memory.StudentMemory, error)
	CreateTeacher(ctx context.Context, token string) (*memory.TeacherMemory, error)
}

// Session is the outcome of a successful login.
type Session struct {
	Token    string   `json:"token"`
	Role     string   `json:"role"`
	UserID   string   `json:"user_id"`
	Grade    string   `json:"grade,omitempty"`
	Subjects []string `json:"available_subjects"`
}

// Service authenticates users and mints session tokens.
type Service struct {
	users      UserStore
	sessions   SessionCreator
	signingKey []byte
	tokenTTL   time.Duration
	logger     *zap.Logger
}

// NewService builds the auth service.
func NewService(users UserStore, sessions SessionCreator, signingKey string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// Login verifies the credentials, mints a token, and creates the empty
// session memory record for the user's role.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.mintToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	switch user.Role {
	case "teacher":
		_, err = s.sessions.CreateTeacher(ctx, token)
	default:
		_, err = s.sessions.CreateStudent(ctx, token)
	}
	if err != nil {
		return nil, fmt.Errorf("create session memory: %w", err)
	}

	subjects, err := s.users.SubjectsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role))

	return &Session{
		Token:    token,
		Role:     user.Role,
		UserID:   user.ID,
		Grade:    user.Grade,
		Subjects: subjects,
	}, nil
}

// Validate parses and verifies a bearer token.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Issuer != issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) mintToken(user *store.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email: user.Email,
		Role:  user.Role,
		Grade: user.Grade,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}
