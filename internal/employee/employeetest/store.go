// Package employeetest provides an in-memory Store for component tests.
package employeetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
)

// MemoryStore implements employee.Store against a map. Error fields let
// tests inject failures on specific write paths.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]employee.Record

	InsertErr error
	UpdateErr error
	LinkErr   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]employee.Record{}}
}

// Seed inserts a record directly, bypassing error injection.
func (s *MemoryStore) Seed(rec employee.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.EmployeeCode] = rec
}

// Get returns the raw record for assertions.
func (s *MemoryStore) Get(employeeCode string) (employee.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[employeeCode]
	return rec, ok
}

func (s *MemoryStore) GetByCode(ctx context.Context, employeeCode string) (*employee.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[employeeCode]
	if !ok || !rec.IsActive {
		return nil, apperr.NotFound("employee not found: " + employeeCode)
	}
	return &rec, nil
}

func (s *MemoryStore) GetByCodeAny(ctx context.Context, employeeCode string) (*employee.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[employeeCode]
	if !ok {
		return nil, apperr.NotFound("employee not found: " + employeeCode)
	}
	return &rec, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*employee.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.IsActive && strings.EqualFold(rec.Email, email) {
			return &rec, nil
		}
	}
	return nil, apperr.NotFound("employee not found: " + email)
}

func (s *MemoryStore) GetByKeycloakID(ctx context.Context, keycloakUserID string) (*employee.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.IsActive && rec.KeycloakUserID == keycloakUserID {
			return &rec, nil
		}
	}
	return nil, apperr.NotFound("employee not found for identity " + keycloakUserID)
}

func (s *MemoryStore) ListByManager(ctx context.Context, managerCode string) ([]employee.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []employee.Record
	for _, rec := range s.sorted() {
		if rec.IsActive && rec.ManagerCode == managerCode {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]employee.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []employee.Record
	for _, rec := range s.sorted() {
		if rec.IsActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, rec employee.Record) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.EmployeeCode]; ok {
		return apperr.Conflict("employee already exists: " + rec.EmployeeCode)
	}
	s.records[rec.EmployeeCode] = rec
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, rec employee.Record) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.EmployeeCode]
	if !ok {
		return apperr.NotFound("employee not found: " + rec.EmployeeCode)
	}
	existing.FirstName = rec.FirstName
	existing.LastName = rec.LastName
	existing.Email = rec.Email
	existing.EmployeeType = rec.EmployeeType
	existing.ManagerCode = rec.ManagerCode
	s.records[rec.EmployeeCode] = existing
	return nil
}

func (s *MemoryStore) SetActive(ctx context.Context, employeeCode string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[employeeCode]
	if !ok {
		return apperr.NotFound("employee not found: " + employeeCode)
	}
	rec.IsActive = active
	s.records[employeeCode] = rec
	return nil
}

func (s *MemoryStore) Link(ctx context.Context, employeeCode, keycloakUserID string) error {
	if s.LinkErr != nil {
		return s.LinkErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[employeeCode]
	if !ok {
		return apperr.NotFound("employee not found: " + employeeCode)
	}
	rec.KeycloakUserID = keycloakUserID
	rec.IsActive = true
	s.records[employeeCode] = rec
	return nil
}

func (s *MemoryStore) Page(ctx context.Context, filters []employee.Filter, sorts []employee.Sort, offset, limit int) (*employee.PageResult, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	page := offset / limit

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []employee.Record
	for _, rec := range s.sorted() {
		if rec.IsActive && matches(rec, filters) {
			matched = append(matched, rec)
		}
	}

	start := page * limit
	end := start + limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	items := matched[start:end]
	if len(items) == 0 {
		return nil, apperr.NotFound("no active employees found")
	}

	return &employee.PageResult{
		Items:      items,
		PageNumber: page,
		PageSize:   limit,
		TotalCount: int64(len(matched)),
	}, nil
}

func (s *MemoryStore) sorted() []employee.Record {
	out := make([]employee.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EmployeeCode < out[j].EmployeeCode
	})
	return out
}

func matches(rec employee.Record, filters []employee.Filter) bool {
	for _, f := range filters {
		v := fieldValue(rec, f.Field)
		switch f.Op {
		case employee.OpContains:
			if !strings.Contains(strings.ToLower(v), strings.ToLower(f.Value)) {
				return false
			}
		case employee.OpGreater:
			if v <= f.Value {
				return false
			}
		case employee.OpLess:
			if v >= f.Value {
				return false
			}
		default:
			if v != f.Value {
				return false
			}
		}
	}
	return true
}

func fieldValue(rec employee.Record, field string) string {
	switch field {
	case "employeeCode":
		return rec.EmployeeCode
	case "firstName":
		return rec.FirstName
	case "lastName":
		return rec.LastName
	case "email":
		return rec.Email
	case "employeeType":
		return rec.EmployeeType
	case "managerCode":
		return rec.ManagerCode
	}
	return ""
}
