package employee

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-service/internal/apperr"
	"identity-service/internal/db"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewPostgresStore(&db.DB{DB: sqlDB}), mock
}

func recordColumnNames() []string {
	return []string{
		"employee_code", "keycloak_user_id", "first_name", "last_name",
		"email", "employee_type", "manager_code", "is_active",
		"created_at", "updated_at",
	}
}

func recordRows(codes ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(recordColumnNames())
	now := time.Now()
	for _, code := range codes {
		rows.AddRow(code, "kc-"+code, "First", "Last", code+"@example.com",
			"Employee", "", true, now, now)
	}
	return rows
}

func TestPagePageMath(t *testing.T) {
	cases := []struct {
		name          string
		offset, limit int
		wantPage      int
		wantLimit     int
	}{
		{"exact page boundary", 20, 10, 2, 10},
		{"offset 5 rounds down to page 0", 5, 10, 0, 10},
		{"offset 9 rounds down to page 0", 9, 10, 0, 10},
		{"negative offset clamps to 0", -3, 10, 0, 10},
		{"zero limit clamps to default", 0, 0, 0, 10},
		{"negative limit clamps to default", 7, -1, 0, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectQuery(`SELECT COUNT\(\*\) FROM employee WHERE is_active = true`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
			mock.ExpectQuery(`(?s)SELECT .* FROM employee WHERE is_active = true.* LIMIT ` +
				strconv.Itoa(tc.wantLimit) + ` OFFSET ` + strconv.Itoa(tc.wantPage*tc.wantLimit)).
				WillReturnRows(recordRows("E1"))

			page, err := store.Page(context.Background(), nil, nil, tc.offset, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPage, page.PageNumber)
			assert.Equal(t, tc.wantLimit, page.PageSize)
			assert.Equal(t, int64(42), page.TotalCount)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPageFiltersAndOrder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM employee WHERE is_active = true AND first_name = \$1 AND email ILIKE '%' \|\| \$2 \|\| '%'`).
		WithArgs("Alice", "@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)SELECT .* WHERE is_active = true AND first_name = \$1 AND email ILIKE .* ORDER BY last_name DESC, employee_code ASC LIMIT 10 OFFSET 0`).
		WithArgs("Alice", "@example.com").
		WillReturnRows(recordRows("E1"))

	filters := []Filter{
		{Field: "firstName", Op: OpEquals, Value: "Alice"},
		{Field: "email", Op: OpContains, Value: "@example.com"},
	}
	sorts := []Sort{
		{Field: "lastName", Descending: true},
		{Field: "employeeCode"},
	}

	page, err := store.Page(context.Background(), filters, sorts, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageEmptyIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM employee`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)SELECT .* FROM employee`).
		WillReturnRows(recordRows())

	_, err := store.Page(context.Background(), nil, nil, 0, 10)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetByCodeScopesToActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT .* FROM employee WHERE employee_code = \$1 AND is_active = true`).
		WithArgs("E1").
		WillReturnRows(recordRows("E1"))

	rec, err := store.GetByCode(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, "E1", rec.EmployeeCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCodeAnySeesInactive(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(recordColumnNames()).
		AddRow("E2", "", "First", "Last", "e2@example.com", "Employee", "",
			false, time.Now(), time.Now())

	// no is_active conjunct on the raw lookup
	mock.ExpectQuery(`(?s)SELECT .* FROM employee WHERE employee_code = \$1$`).
		WithArgs("E2").
		WillReturnRows(rows)

	rec, err := store.GetByCodeAny(context.Background(), "E2")
	require.NoError(t, err)
	assert.False(t, rec.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCodeMissingIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT .* FROM employee`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(recordColumnNames()))

	_, err := store.GetByCode(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestInsertUniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO employee`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Insert(context.Background(), Record{EmployeeCode: "E1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestLinkActivatesRecord(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`(?s)UPDATE employee.*SET keycloak_user_id = \$2, is_active = true`).
		WithArgs("E1", "kc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Link(context.Background(), "E1", "kc-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkMissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE employee`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Link(context.Background(), "ghost", "kc-1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
