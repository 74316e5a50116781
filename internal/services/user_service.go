package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/models"
)

const minPasswordLen = 8

// TokenIssuer signs credential tokens for an identity.
type TokenIssuer interface {
	Issue(id core.Identity) (string, error)
}

type UserService struct {
	db     core.DbClient
	tokens TokenIssuer
	cost   int
}

func NewUserService(db core.DbClient, tokens TokenIssuer) *UserService {
	return &UserService{db: db, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates a user with a bcrypt password hash. A taken email is
// ErrConflict.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	const op = "register"

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, core.NewError(core.ErrInvalidInput, op, "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, core.NewError(core.ErrInvalidInput, op, "email is invalid")
	}
	if len(password) < minPasswordLen {
		return nil, core.NewError(core.ErrInvalidInput, op, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, op, err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if core.IsKind(err, core.ErrConflict) {
			return nil, err
		}
		return nil, core.WrapError(core.ErrStorageFailure, op, err)
	}
	return user, nil
}

// Login checks the password and returns a signed token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "login"

	user, err := s.db.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailure, op, err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", core.NewError(core.ErrUnauthenticated, op, "invalid credentials")
	}

	token, err := s.tokens.Issue(core.Identity{UserID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		return "", fmt.Errorf("%s: issue token: %w", op, err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
