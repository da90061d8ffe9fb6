package store

import (
	"database/sql"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

// GetUserByUsername returns nil, nil when the user does not exist.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password FROM users WHERE username = ?`
	row := s.DB.QueryRow(query, username)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Password); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser stores an already hashed password.
func (s *Store) CreateUser(username, hashedPassword string) error {
	query := `INSERT INTO users (username, password) VALUES (?, ?)`
	_, err := s.DB.Exec(query, username, hashedPassword)
	return err
}

func (s *Store) CountUsers() (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
