package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/apperrors"
	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/utils"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users      repository.UserRepository
	secret     string
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

const maxPasswordBytes = 72

func NewAuthService(users repository.UserRepository, secret string, tokenTTL time.Duration, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		secret:     secret,
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	// bcrypt limits the input in bytes, not characters.
	if len(password) > maxPasswordBytes {
		return "", apperrors.Validation(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, string(hash))
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return "", apperrors.Validation("Email already registered")
	}
	if err != nil {
		return "", err
	}
	return s.issue(user)
}

// Authenticate returns a token for valid credentials. Unknown email and wrong password
// are reported identically.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (string, error) {
	invalid := apperrors.New(apperrors.ErrUnauthorized, "Invalid email or password")

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", invalid
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", invalid
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (string, error) {
	return utils.IssueToken(s.secret, user, s.tokenTTL, s.now())
}
