package db

import (
	"database/sql"
)

// Database is a SQL connection with an explicit lifecycle.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
