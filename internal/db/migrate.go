package db

import (
	"context"
	"database/sql"
)

const employeeMigration = `
CREATE TABLE IF NOT EXISTS employee (
    employee_code text PRIMARY KEY,
    keycloak_user_id text,
    first_name text NOT NULL,
    last_name text NOT NULL,
    email text NOT NULL,
    employee_type text NOT NULL DEFAULT 'Employee',
    manager_code text,
    is_active boolean NOT NULL DEFAULT false,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS employee_email_lower_unique
ON employee (LOWER(email));

CREATE INDEX IF NOT EXISTS employee_manager_code_idx
ON employee (manager_code);

CREATE INDEX IF NOT EXISTS employee_keycloak_user_id_idx
ON employee (keycloak_user_id);
`

func RunEmployeeMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, employeeMigration)
	return err
}
