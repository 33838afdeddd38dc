package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"identity-service/internal/apperr"
	"identity-service/internal/db"
)

const defaultPageSize = 10

const recordColumns = `employee_code, COALESCE(keycloak_user_id, ''), first_name,
	last_name, email, employee_type, COALESCE(manager_code, ''), is_active,
	created_at, updated_at`

// PostgresStore is the production Store backed by the employee table.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByCode(ctx context.Context, employeeCode string) (*Record, error) {
	return s.getOne(ctx,
		"WHERE employee_code = $1 AND is_active = true",
		"employee not found: "+employeeCode,
		employeeCode)
}

// GetByCodeAny ignores the active flag; the status toggle needs to reach
// deactivated rows.
func (s *PostgresStore) GetByCodeAny(ctx context.Context, employeeCode string) (*Record, error) {
	return s.getOne(ctx,
		"WHERE employee_code = $1",
		"employee not found: "+employeeCode,
		employeeCode)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return s.getOne(ctx,
		"WHERE LOWER(email) = LOWER($1) AND is_active = true",
		"employee not found: "+email,
		email)
}

func (s *PostgresStore) GetByKeycloakID(ctx context.Context, keycloakUserID string) (*Record, error) {
	return s.getOne(ctx,
		"WHERE keycloak_user_id = $1 AND is_active = true",
		"employee not found for identity "+keycloakUserID,
		keycloakUserID)
}

func (s *PostgresStore) getOne(ctx context.Context, where, notFoundMsg string, arg any) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM employee "+where, arg)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound(notFoundMsg)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) ListByManager(ctx context.Context, managerCode string) ([]Record, error) {
	return s.list(ctx,
		"SELECT "+recordColumns+" FROM employee WHERE manager_code = $1 AND is_active = true ORDER BY employee_code",
		managerCode)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Record, error) {
	return s.list(ctx,
		"SELECT "+recordColumns+" FROM employee WHERE is_active = true ORDER BY employee_code")
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employee
			(employee_code, keycloak_user_id, first_name, last_name, email,
			 employee_type, manager_code, is_active)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''), $8)
	`,
		rec.EmployeeCode, rec.KeycloakUserID, rec.FirstName, rec.LastName,
		rec.Email, rec.EmployeeType, rec.ManagerCode, rec.IsActive,
	)
	if err != nil {
		// unique_violation: the storage constraint is the serialization
		// point for concurrent provisioning of the same code or email
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperr.Conflict("employee already exists: " + rec.EmployeeCode)
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE employee
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    employee_type = $5,
		    manager_code = NULLIF($6, ''),
		    updated_at = NOW()
		WHERE employee_code = $1
	`,
		rec.EmployeeCode, rec.FirstName, rec.LastName, rec.Email,
		rec.EmployeeType, rec.ManagerCode,
	)
	if err != nil {
		return err
	}
	return requireRow(res, rec.EmployeeCode)
}

func (s *PostgresStore) SetActive(ctx context.Context, employeeCode string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE employee SET is_active = $2, updated_at = NOW()
		WHERE employee_code = $1
	`, employeeCode, active)
	if err != nil {
		return err
	}
	return requireRow(res, employeeCode)
}

func (s *PostgresStore) Link(ctx context.Context, employeeCode, keycloakUserID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE employee
		SET keycloak_user_id = $2, is_active = true, updated_at = NOW()
		WHERE employee_code = $1
	`, employeeCode, keycloakUserID)
	if err != nil {
		return err
	}
	return requireRow(res, employeeCode)
}

// Page translates the offset/limit boundary contract into page-number/
// page-size: page = offset / limit, integer division, so offsets that are
// not multiples of limit round down to the containing page.
func (s *PostgresStore) Page(ctx context.Context, filters []Filter, sorts []Sort, offset, limit int) (*PageResult, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := offset / limit

	where, args := buildWhere(filters)

	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM employee "+where, args...).Scan(&total)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + recordColumns + " FROM employee " + where +
		buildOrderBy(sorts) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", limit, page*limit)

	items, err := s.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, apperr.NotFound("no active employees found")
	}

	return &PageResult{
		Items:      items,
		PageNumber: page,
		PageSize:   limit,
		TotalCount: total,
	}, nil
}

// buildWhere renders the caller's filters as a conjunctive predicate with
// the active-only invariant always merged in first.
func buildWhere(filters []Filter) (string, []any) {
	conds := []string{"is_active = true"}
	args := make([]any, 0, len(filters))

	for _, f := range filters {
		col := Column(f.Field)
		n := len(args) + 1
		switch f.Op {
		case OpContains:
			conds = append(conds, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", col, n))
		case OpGreater:
			conds = append(conds, fmt.Sprintf("%s > $%d", col, n))
		case OpLess:
			conds = append(conds, fmt.Sprintf("%s < $%d", col, n))
		default:
			conds = append(conds, fmt.Sprintf("%s = $%d", col, n))
		}
		args = append(args, f.Value)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

func buildOrderBy(sorts []Sort) string {
	if len(sorts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sorts))
	for _, s := range sorts {
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		keys = append(keys, Column(s.Field)+" "+dir)
	}
	return " ORDER BY " + strings.Join(keys, ", ")
}

func requireRow(res sql.Result, employeeCode string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("employee not found: " + employeeCode)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.EmployeeCode, &rec.KeycloakUserID, &rec.FirstName, &rec.LastName,
		&rec.Email, &rec.EmployeeType, &rec.ManagerCode, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
