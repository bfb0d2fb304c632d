package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"bartab/internal/model"
)

type AuthService struct {
	db *sql.DB
}

func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db}
}

func (s *AuthService) Register(ctx context.Context, login, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `INSERT INTO users (login, password_hash)
		VALUES ($1, $2)
		RETURNING id, login, role, wallet_balance, created_at`
	row := s.db.QueryRowContext(ctx, query, login, hash)

	var user model.User
	if err := row.Scan(&user.ID, &user.Login, &user.Role, &user.WalletBalance, &user.CreatedAt); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user.PasswordHash = hash

	return &user, nil
}

// CreateStaff provisions a bartender or bar admin account bound to a bar.
func (s *AuthService) CreateStaff(ctx context.Context, login, password string, role model.Role, barID string) (*model.User, error) {
	if role != model.RoleBartender && role != model.RoleBarAdmin {
		return nil, fmt.Errorf("%w: role %q is not a staff role", ErrInvalidInput, role)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bars WHERE id = $1)`, barID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check bar: %w", err)
	}
	if !exists {
		return nil, ErrBarNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `INSERT INTO users (login, password_hash, role, bar_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, login, role, bar_id, wallet_balance, created_at`
	row := s.db.QueryRowContext(ctx, query, login, hash, role, barID)

	var user model.User
	if err := row.Scan(&user.ID, &user.Login, &user.Role, &user.BarID, &user.WalletBalance, &user.CreatedAt); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("insert staff user: %w", err)
	}
	user.PasswordHash = hash

	return &user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	query := `SELECT id, login, password_hash, role, bar_id, wallet_balance, created_at
		FROM users WHERE login = $1`
	row := s.db.QueryRowContext(ctx, query, login)

	var user model.User
	if err := row.Scan(&user.ID, &user.Login, &user.PasswordHash, &user.Role, &user.BarID, &user.WalletBalance, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}
