package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrDuplicateUser = errors.New("username already taken")
	ErrUserNotFound  = errors.New("user not found")
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// UserStore persists registered users in sqlite. Board state is deliberately
// not stored here; only credentials survive a restart.
type UserStore struct {
	db *sql.DB
}

const userSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// openUserStore opens sqlite with sensible defaults and ensures the schema.
func openUserStore(path string) (*UserStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(userSchemaSQL); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &UserStore{db: db}, nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}

// Create inserts a new user, returning ErrDuplicateUser if the username is
// already registered.
func (s *UserStore) Create(username, passwordHash string) error {
	_, err := s.db.Exec(`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrDuplicateUser
	}

	return err
}

// FindByUsername returns ErrUserNotFound when no such user exists.
func (s *UserStore) FindByUsername(username string) (*User, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash FROM users WHERE username = ?`,
		username)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}
