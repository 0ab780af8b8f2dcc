package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

// UserStore is the persistence AuthService needs.  *repository.UserRepo
// satisfies it.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthService registers users and checks their credentials.
type AuthService struct {
	users      UserStore
	bcryptCost int
	decoy      *utils.Decoy
}

func NewAuthService(users UserStore, bcryptCost int) *AuthService {
	return &AuthService{users: users, bcryptCost: bcryptCost, decoy: utils.NewDecoy(bcryptCost)}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,simpleemail"`
	Password string `json:"password" validate:"notblank"`
}

// Register creates a user and returns its id.  The email is stored
// lower-cased; registering the same address twice yields
// apperr.ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (uint64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return 0, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return 0, err
	}
	id, err := s.users.Create(ctx, in.Name, in.Email, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		return 0, apperr.ErrDuplicateEmail
	}
	if err != nil {
		return 0, apperr.Persistence("create user", err)
	}
	return id, nil
}

// Authenticate returns the id of the user owning email and password.  An
// unknown email and a wrong password produce the same error, and both
// cost one bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (uint64, error) {
	if !emailPattern.MatchString(repository.NormalizeEmail(email)) || password == "" {
		return 0, apperr.ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.decoy.Verify(password)
		return 0, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return 0, apperr.Persistence("lookup user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return 0, apperr.ErrInvalidCredentials
	}
	return u.ID, nil
}

// Profile returns the public view of a user.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (model.Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, apperr.ErrNotFound
	}
	if err != nil {
		return model.Profile{}, apperr.Persistence("load user", err)
	}
	return model.Profile{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}
