package store

import (
	"database/sql"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store holds local state only: admin users and the activity log. Products
// and API credentials never live here.
type Store struct {
	DB *sql.DB
}

func NewStore(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// SQLite allows a single writer; serialise through one connection.
	db.SetMaxOpenConns(1)

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
