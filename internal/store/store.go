package store

import (
	"errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status update would move a
	// podcast backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the durable metadata store for podcasts, users and likes. It is
// constructed once at process start and injected into everything that needs
// it; there is no package-level connection.
type Store struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// New connects to Postgres and verifies the connection.
func New(databaseURL string, log zerolog.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Info().Msg("database connection established")
	return &Store{db: db, log: log}, nil
}

// NewWithDB wraps an existing connection. Used by tests with sqlmock.
func NewWithDB(db *sqlx.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
