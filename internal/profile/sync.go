package profile

import (
	"context"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/keycloak"
	"identity-service/internal/logger"
)

// Patch is a partial profile update. Nil fields are left untouched on
// both stores.
type Patch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	EmployeeType *string
}

// Coordinator applies a profile patch to the identity provider first and
// to the record store only after the remote update succeeded, so the two
// stores never diverge in favor of a stale remote. The one remaining
// window — remote applied, local write fails — is surfaced as a distinct
// partial-sync failure for manual reconciliation, never auto-healed.
type Coordinator struct {
	store employee.Store
	idp   keycloak.Client
}

func NewCoordinator(store employee.Store, idp keycloak.Client) *Coordinator {
	return &Coordinator{store: store, idp: idp}
}

// UpdateOwn patches the profile of the caller, resolved from their own
// remote identity id (the bearer token subject).
func (c *Coordinator) UpdateOwn(ctx context.Context, keycloakUserID string, patch Patch) error {
	user, err := c.idp.FindByID(ctx, keycloakUserID)
	if err != nil {
		return err
	}
	return c.apply(ctx, user, patch)
}

// UpdateByCode patches the profile of the employee with the given code
// (admin path). The subject is resolved through the provider's username
// search first, mirroring the remote-first write ordering.
func (c *Coordinator) UpdateByCode(ctx context.Context, employeeCode string, patch Patch) error {
	user, err := c.idp.FindByUsername(ctx, employeeCode)
	if err != nil {
		return err
	}
	return c.apply(ctx, user, patch)
}

// UpdatePassword sets a new permanent credential for the caller's own
// account. Credentials live only in the identity provider, so there is
// no local write to keep in sync.
func (c *Coordinator) UpdatePassword(ctx context.Context, keycloakUserID, newPassword string) error {
	return c.idp.SetPassword(ctx, keycloakUserID, newPassword, false)
}

func (c *Coordinator) apply(ctx context.Context, user *keycloak.User, patch Patch) error {
	// Remote first. If this fails the local record is untouched.
	if err := c.idp.Update(ctx, mergeRemote(*user, patch)); err != nil {
		return err
	}

	rec, err := c.store.GetByKeycloakID(ctx, user.ID)
	if err == nil {
		err = c.store.Update(ctx, mergeLocal(*rec, patch))
	}
	if err != nil {
		logger.Error("partial sync: remote updated, local update failed", map[string]any{
			"employee_code": user.Username,
			"user_id":       user.ID,
			"error":         err.Error(),
		})
		return apperr.Wrap(apperr.KindPartialSync,
			"profile updated in identity provider but not in record store", err)
	}
	return nil
}

// mergeRemote overlays the patch onto the remote representation,
// preserving attributes the patch does not mention.
func mergeRemote(user keycloak.User, patch Patch) keycloak.User {
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.EmployeeType != nil {
		attrs := map[string][]string{}
		for k, v := range user.Attributes {
			attrs[k] = v
		}
		attrs["employeeType"] = []string{*patch.EmployeeType}
		user.Attributes = attrs
	}
	return user
}

func mergeLocal(rec employee.Record, patch Patch) employee.Record {
	if patch.FirstName != nil {
		rec.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		rec.LastName = *patch.LastName
	}
	if patch.Email != nil {
		rec.Email = *patch.Email
	}
	if patch.EmployeeType != nil {
		rec.EmployeeType = *patch.EmployeeType
	}
	return rec
}
