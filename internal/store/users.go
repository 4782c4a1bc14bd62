package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	CreatedAt    int64  `json:"createdAt"`
}

func (s *Store) CreateUser(name string, email string, passwordHash string, role string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UnixMilli(),
	}

	_, err := s.DB.Exec(
		`INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	return s.scanUser(s.DB.QueryRow(
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ? LIMIT 1`,
		strings.ToLower(email),
	))
}

func (s *Store) GetUserByID(id string) (*User, error) {
	return s.scanUser(s.DB.QueryRow(
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ? LIMIT 1`,
		id,
	))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
