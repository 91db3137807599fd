package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitrine/catalog/internal/config"
)

// tokenTTL bounds how long an issued admin token stays valid.
const tokenTTL = 8 * time.Hour

// ErrInvalidCredentials is returned when the username or password is wrong.
// The two cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Service contains the login business logic.
type Service struct {
	repo *Repository
	cfg  *config.Config
}

// NewService creates a new auth Service.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Login checks the credentials against the admins table and returns a signed
// token carrying the admin claim.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrAdminNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("look up admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(admin)
}

// issueToken creates a signed JWT for the given admin.
func (s *Service) issueToken(admin *Admin) (string, error) {
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(admin.ID, 10),
		"username": admin.Username,
		"admin":    true,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
