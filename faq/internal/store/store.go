// Package store is the data access layer: contexts, their sources, the
// Q&A items with their append-only change log, interaction events and
// the fetch log. One SQLite database serves all contexts.
package store

import "database/sql"

// Store wraps the database for FAQ operations.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
