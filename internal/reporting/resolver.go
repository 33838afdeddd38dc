package reporting

import (
	"context"
	"strings"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/logger"
)

// ManagerRole is the realm role a user must hold to be assignable as a
// reporting manager.
const ManagerRole = "ReportingManager"

// ManagerNotAssigned is the literal returned when an employee simply has
// no manager. It is a normal state, not an error.
const ManagerNotAssigned = "no manager assigned"

// RoleDirectory is the slice of the role engine this resolver needs:
// role membership as an authorization predicate.
type RoleDirectory interface {
	UsersByRoles(ctx context.Context, roleNames []string) (map[string]string, error)
}

// Resolver owns the manager relationship between two employee records.
type Resolver struct {
	store employee.Store
	roles RoleDirectory
}

func NewResolver(store employee.Store, roles RoleDirectory) *Resolver {
	return &Resolver{store: store, roles: roles}
}

// AssignManager sets managerCode as the employee's reporting manager,
// after verifying the manager actually holds the ReportingManager role.
func (r *Resolver) AssignManager(ctx context.Context, employeeCode, managerCode string) error {
	ok, err := r.holdsManagerRole(ctx, managerCode)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden(managerCode + " does not hold the " + ManagerRole + " role")
	}

	rec, err := r.store.GetByCode(ctx, employeeCode)
	if err != nil {
		return err
	}

	rec.ManagerCode = managerCode
	if err := r.store.Update(ctx, *rec); err != nil {
		return err
	}

	logger.Info("reporting manager assigned", map[string]any{
		"employee_code": employeeCode,
		"manager_code":  managerCode,
	})
	return nil
}

// ManagerNameFor resolves the employee's manager to a display name.
// "No manager assigned" is a normal answer; a manager code pointing at
// no active record is a data-integrity error.
func (r *Resolver) ManagerNameFor(ctx context.Context, employeeCode string) (string, error) {
	rec, err := r.store.GetByCode(ctx, employeeCode)
	if err != nil {
		return "", err
	}

	if rec.ManagerCode == "" {
		return ManagerNotAssigned, nil
	}

	manager, err := r.store.GetByCode(ctx, rec.ManagerCode)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return "", apperr.NotFound("reporting manager not found: " + rec.ManagerCode)
		}
		return "", err
	}

	return manager.DisplayName(), nil
}

// EmployeesUnderManager lists the active records reporting to the given
// manager code.
func (r *Resolver) EmployeesUnderManager(ctx context.Context, managerCode string) ([]employee.Record, error) {
	return r.store.ListByManager(ctx, managerCode)
}

func (r *Resolver) holdsManagerRole(ctx context.Context, managerCode string) (bool, error) {
	holders, err := r.roles.UsersByRoles(ctx, []string{ManagerRole})
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			// nobody holds the role at all
			return false, nil
		}
		return false, err
	}
	for username := range holders {
		if strings.EqualFold(username, managerCode) {
			return true, nil
		}
	}
	return false, nil
}
