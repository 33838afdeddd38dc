package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/employee/employeetest"
	"identity-service/internal/keycloak"
	"identity-service/internal/keycloak/keycloaktest"
)

func strptr(s string) *string { return &s }

func newSyncFixture() (*Coordinator, *employeetest.MemoryStore, *keycloaktest.Fake, string) {
	store := employeetest.NewMemoryStore()
	idp := keycloaktest.NewFake()

	userID := idp.SeedUser(keycloak.User{
		Username:  "E100",
		FirstName: "Alice",
		LastName:  "Nguyen",
		Email:     "alice@example.com",
		Enabled:   true,
		Attributes: map[string][]string{
			"employeeType": {"Employee"},
			"source":       {"identity-service"},
		},
	})
	store.Seed(employee.Record{
		EmployeeCode:   "E100",
		KeycloakUserID: userID,
		FirstName:      "Alice",
		LastName:       "Nguyen",
		Email:          "alice@example.com",
		EmployeeType:   "Employee",
		IsActive:       true,
	})

	return NewCoordinator(store, idp), store, idp, userID
}

func TestUpdateOwnPatchesBothStores(t *testing.T) {
	coord, store, idp, userID := newSyncFixture()

	err := coord.UpdateOwn(context.Background(), userID, Patch{
		LastName: strptr("Tran"),
		Email:    strptr("alice.tran@example.com"),
	})
	require.NoError(t, err)

	u, _ := idp.User(userID)
	assert.Equal(t, "Tran", u.LastName)
	assert.Equal(t, "alice.tran@example.com", u.Email)
	assert.Equal(t, "Alice", u.FirstName, "unpatched field untouched")

	rec, _ := store.Get("E100")
	assert.Equal(t, "Tran", rec.LastName)
	assert.Equal(t, "alice.tran@example.com", rec.Email)
	assert.Equal(t, "Alice", rec.FirstName)
}

func TestUpdateByCodeResolvesThroughProvider(t *testing.T) {
	coord, store, idp, userID := newSyncFixture()

	err := coord.UpdateByCode(context.Background(), "E100", Patch{
		EmployeeType: strptr("Contractor"),
	})
	require.NoError(t, err)

	u, _ := idp.User(userID)
	assert.Equal(t, []string{"Contractor"}, u.Attributes["employeeType"])
	assert.Equal(t, []string{"identity-service"}, u.Attributes["source"],
		"untouched attributes survive the merge")

	rec, _ := store.Get("E100")
	assert.Equal(t, "Contractor", rec.EmployeeType)
}

func TestUpdateRemoteFailureLeavesLocalUntouched(t *testing.T) {
	coord, store, idp, userID := newSyncFixture()
	idp.UpdateErr = apperr.Unavailable("identity provider unreachable")

	err := coord.UpdateOwn(context.Background(), userID, Patch{
		FirstName: strptr("Changed"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))

	rec, _ := store.Get("E100")
	assert.Equal(t, "Alice", rec.FirstName, "local record must not change when the remote write failed")
}

func TestUpdateLocalFailureIsPartialSync(t *testing.T) {
	coord, store, idp, userID := newSyncFixture()
	store.UpdateErr = apperr.Internal("write failed")

	err := coord.UpdateOwn(context.Background(), userID, Patch{
		FirstName: strptr("Changed"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPartialSync, apperr.KindOf(err))

	u, _ := idp.User(userID)
	assert.Equal(t, "Changed", u.FirstName, "remote side already applied")
}

func TestUpdateUnknownSubjectIsNotFound(t *testing.T) {
	coord, _, _, _ := newSyncFixture()

	err := coord.UpdateOwn(context.Background(), "kc-missing", Patch{
		FirstName: strptr("Changed"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdatePasswordIsPermanent(t *testing.T) {
	coord, _, idp, userID := newSyncFixture()

	err := coord.UpdatePassword(context.Background(), userID, "new-password-1")
	require.NoError(t, err)
	assert.Contains(t, idp.Calls, "SetPassword")
}
