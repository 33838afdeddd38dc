package db

import "database/sql"

// DB wraps the raw connection pool so downstream packages depend on the
// service's own type rather than database/sql directly.
type DB struct {
	*sql.DB
}
