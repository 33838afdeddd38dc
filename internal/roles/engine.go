package roles

import (
	"context"
	"strings"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/keycloak"
	"identity-service/internal/logger"
)

// Engine reconciles requested role changes against the identity
// provider's live effective-role state. The provider is ground truth,
// fetched fresh on every call; nothing here is cached.
type Engine struct {
	store employee.Store
	idp   keycloak.Client
	realm string
}

func NewEngine(store employee.Store, idp keycloak.Client, realm string) *Engine {
	return &Engine{store: store, idp: idp, realm: realm}
}

// Assign adds the given realm roles to the employee's account. Any role
// already effective rejects the whole batch; any role missing from the
// realm catalog is a not-found error. Resolution happens before the one
// remote add call, so either all roles land or none do.
func (e *Engine) Assign(ctx context.Context, employeeCode string, roleNames []string) error {
	user, effective, err := e.subject(ctx, employeeCode)
	if err != nil {
		return err
	}

	resolved := make([]keycloak.Role, 0, len(roleNames))
	for _, name := range roleNames {
		if effective[name] {
			return apperr.Conflict("role already assigned: " + name)
		}
		role, err := e.idp.RoleByName(ctx, name)
		if err != nil {
			return apperr.NotFound("role not found: " + name)
		}
		resolved = append(resolved, *role)
	}

	if err := e.idp.AddRealmRoles(ctx, user.ID, resolved); err != nil {
		return err
	}
	logger.Info("roles assigned", map[string]any{
		"employee_code": employeeCode,
		"roles":         roleNames,
	})
	return nil
}

// Unassign is the symmetric removal: every requested role must currently
// be effective.
func (e *Engine) Unassign(ctx context.Context, employeeCode string, roleNames []string) error {
	user, effective, err := e.subject(ctx, employeeCode)
	if err != nil {
		return err
	}

	resolved := make([]keycloak.Role, 0, len(roleNames))
	for _, name := range roleNames {
		if !effective[name] {
			return apperr.NotFound("role not assigned: " + name)
		}
		role, err := e.idp.RoleByName(ctx, name)
		if err != nil {
			return apperr.NotFound("role not found: " + name)
		}
		resolved = append(resolved, *role)
	}

	if err := e.idp.RemoveRealmRoles(ctx, user.ID, resolved); err != nil {
		return err
	}
	logger.Info("roles unassigned", map[string]any{
		"employee_code": employeeCode,
		"roles":         roleNames,
	})
	return nil
}

// Update applies additions and removals best-effort, without the
// membership pre-checks Assign and Unassign enforce. The asymmetry is
// deliberate here: this is the admin override path.
func (e *Engine) Update(ctx context.Context, employeeCode string, toAssign, toRemove []string) error {
	user, err := e.idp.FindByUsername(ctx, employeeCode)
	if err != nil {
		return err
	}

	if len(toAssign) > 0 {
		resolved, err := e.resolveAll(ctx, toAssign)
		if err != nil {
			return err
		}
		if err := e.idp.AddRealmRoles(ctx, user.ID, resolved); err != nil {
			return err
		}
	}

	if len(toRemove) > 0 {
		resolved, err := e.resolveAll(ctx, toRemove)
		if err != nil {
			return err
		}
		if err := e.idp.RemoveRealmRoles(ctx, user.ID, resolved); err != nil {
			return err
		}
	}

	logger.Info("roles updated", map[string]any{
		"employee_code": employeeCode,
		"assigned":      toAssign,
		"removed":       toRemove,
	})
	return nil
}

// ListEffective returns the employee's effective realm roles minus the
// provider's implicit built-ins, which are never exposed to callers.
func (e *Engine) ListEffective(ctx context.Context, employeeCode string) ([]string, error) {
	user, err := e.idp.FindByUsername(ctx, employeeCode)
	if err != nil {
		return nil, err
	}

	roles, err := e.idp.EffectiveRealmRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if e.isImplicitRole(r.Name) {
			continue
		}
		out = append(out, r.Name)
	}
	return out, nil
}

// HasRole reports whether the employee's effective roles include role.
func (e *Engine) HasRole(ctx context.Context, employeeCode, role string) (bool, error) {
	effective, err := e.ListEffective(ctx, employeeCode)
	if err != nil {
		return false, err
	}
	for _, r := range effective {
		if strings.EqualFold(r, role) {
			return true, nil
		}
	}
	return false, nil
}

// UsersByRoles scans all remote accounts, keeps the ones backed by an
// active local record (the join point between the two stores) and
// holding every requested role, and returns username -> first name.
// Matching nothing is a not-found condition; anything else unexpected is
// wrapped as internal.
func (e *Engine) UsersByRoles(ctx context.Context, roleNames []string) (map[string]string, error) {
	matched, err := e.usersByRoles(ctx, roleNames)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		logger.Error("users-by-roles scan failed", map[string]any{
			"roles": roleNames,
			"error": err.Error(),
		})
		return nil, apperr.Wrap(apperr.KindInternal, "could not resolve users by roles", err)
	}
	return matched, nil
}

func (e *Engine) usersByRoles(ctx context.Context, roleNames []string) (map[string]string, error) {
	all, err := e.idp.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	activeByUserID := make(map[string]employee.Record, len(active))
	for _, rec := range active {
		if rec.KeycloakUserID != "" {
			activeByUserID[rec.KeycloakUserID] = rec
		}
	}

	matched := map[string]string{}
	for _, u := range all {
		if _, ok := activeByUserID[u.ID]; !ok {
			continue
		}

		roles, err := e.idp.EffectiveRealmRoles(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		held := make(map[string]bool, len(roles))
		for _, r := range roles {
			held[r.Name] = true
		}

		hasAll := true
		for _, want := range roleNames {
			if !held[want] {
				hasAll = false
				break
			}
		}
		if hasAll {
			matched[u.Username] = u.FirstName
		}
	}

	if len(matched) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "no users found with role(s) %v", roleNames)
	}
	return matched, nil
}

func (e *Engine) resolveAll(ctx context.Context, roleNames []string) ([]keycloak.Role, error) {
	resolved := make([]keycloak.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := e.idp.RoleByName(ctx, name)
		if err != nil {
			return nil, apperr.NotFound("role not found: " + name)
		}
		resolved = append(resolved, *role)
	}
	return resolved, nil
}

// The provider's implicit built-ins; every account carries them and they
// mean nothing to this system's callers.
func (e *Engine) isImplicitRole(name string) bool {
	return strings.EqualFold(name, "offline_access") ||
		strings.EqualFold(name, "uma_authorization") ||
		strings.EqualFold(name, "default-roles-"+e.realm)
}

func (e *Engine) subject(ctx context.Context, employeeCode string) (*keycloak.User, map[string]bool, error) {
	user, err := e.idp.FindByUsername(ctx, employeeCode)
	if err != nil {
		return nil, nil, err
	}

	roles, err := e.idp.EffectiveRealmRoles(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	effective := make(map[string]bool, len(roles))
	for _, r := range roles {
		effective[r.Name] = true
	}
	return user, effective, nil
}
