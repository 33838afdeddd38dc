package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/employee/employeetest"
	"identity-service/internal/keycloak"
	"identity-service/internal/keycloak/keycloaktest"
)

type stubMailer struct {
	sent []string
	err  error
}

func (m *stubMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func newSagaFixture() (*Saga, *employeetest.MemoryStore, *keycloaktest.Fake, *stubMailer) {
	store := employeetest.NewMemoryStore()
	idp := keycloaktest.NewFake()
	idp.SeedRole(DefaultRole)
	mailer := &stubMailer{}
	return NewSaga(store, idp, mailer), store, idp, mailer
}

func request() Request {
	return Request{
		EmployeeCode: "E100",
		FirstName:    "Alice",
		LastName:     "Nguyen",
		Email:        "alice@example.com",
	}
}

func TestRunHappyPath(t *testing.T) {
	saga, store, idp, mailer := newSagaFixture()

	res, err := saga.Run(context.Background(), request())
	require.NoError(t, err)

	require.NotEmpty(t, res.KeycloakUserID)
	assert.Len(t, res.TemporaryPassword, tempPasswordLength)
	assert.True(t, res.NotificationSent)
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent)

	u, ok := idp.User(res.KeycloakUserID)
	require.True(t, ok)
	assert.Equal(t, "E100", u.Username, "remote username is the employee code")
	assert.True(t, u.Enabled)
	assert.Contains(t, idp.RoleNames(res.KeycloakUserID), DefaultRole)

	rec, ok := store.Get("E100")
	require.True(t, ok)
	assert.True(t, rec.IsActive, "record activates at link-back")
	assert.Equal(t, res.KeycloakUserID, rec.KeycloakUserID)
	assert.Equal(t, employee.DefaultEmployeeType, rec.EmployeeType)
}

func TestRunDuplicateEmailStopsBeforeRemote(t *testing.T) {
	saga, store, idp, _ := newSagaFixture()
	store.Seed(employee.Record{
		EmployeeCode: "E1", Email: "alice@example.com", IsActive: true,
	})

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Empty(t, idp.Calls, "no remote calls before the reservation step succeeds")
}

func TestRunDuplicateCodeStopsBeforeRemote(t *testing.T) {
	saga, store, idp, _ := newSagaFixture()
	store.Seed(employee.Record{
		EmployeeCode: "E100", Email: "other@example.com", IsActive: true,
	})

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Empty(t, idp.Calls)
}

func TestRunProviderDownIsUnavailableWithoutCompensation(t *testing.T) {
	saga, store, idp, _ := newSagaFixture()
	idp.PingErr = apperr.Unavailable("identity provider unreachable")

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.NotContains(t, idp.Calls, "Delete")

	rec, ok := store.Get("E100")
	require.True(t, ok, "inactive reservation stays behind")
	assert.False(t, rec.IsActive)
	assert.Empty(t, rec.KeycloakUserID)
}

func TestRunRemoteUsernameCollisionIsConflict(t *testing.T) {
	saga, _, idp, _ := newSagaFixture()
	idp.SeedUser(keycloak.User{Username: "e100", Email: "old@example.com"})

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NotContains(t, idp.Calls, "Create")
}

func TestRunRemoteEmailCollisionIsConflict(t *testing.T) {
	saga, _, idp, _ := newSagaFixture()
	idp.SeedUser(keycloak.User{Username: "other", Email: "ALICE@example.com"})

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NotContains(t, idp.Calls, "Create")
}

func TestRunFailureAfterRemoteCreateCompensates(t *testing.T) {
	saga, store, idp, _ := newSagaFixture()
	idp.SetPasswordErr = apperr.Rejected("credential rejected")

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindRejected, apperr.KindOf(err))
	assert.Contains(t, idp.Calls, "Delete")

	_, findErr := idp.FindByUsername(context.Background(), "E100")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(findErr),
		"remote account removed by compensation")

	rec, ok := store.Get("E100")
	require.True(t, ok)
	assert.False(t, rec.IsActive, "reservation never activated")
}

func TestRunRoleFailureCompensates(t *testing.T) {
	saga, _, idp, _ := newSagaFixture()
	idp.AddRolesErr = apperr.Rejected("role assignment rejected")

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Contains(t, idp.Calls, "Delete")
}

func TestRunLinkFailureCompensates(t *testing.T) {
	saga, store, idp, _ := newSagaFixture()
	store.LinkErr = errors.New("connection reset")

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Contains(t, idp.Calls, "Delete")
}

func TestRunCompensationFailureKeepsOriginalError(t *testing.T) {
	saga, _, idp, _ := newSagaFixture()
	idp.SetPasswordErr = apperr.Rejected("credential rejected")
	idp.DeleteErr = apperr.Unavailable("identity provider unreachable")

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindRejected, apperr.KindOf(err),
		"compensation failure must not mask the step error")
}

func TestRunMailFailureDegradesToSuccess(t *testing.T) {
	saga, store, idp, mailer := newSagaFixture()
	mailer.err = errors.New("smtp: connection refused")

	res, err := saga.Run(context.Background(), request())
	require.NoError(t, err)
	assert.False(t, res.NotificationSent)
	assert.NotContains(t, idp.Calls, "Delete")

	rec, _ := store.Get("E100")
	assert.True(t, rec.IsActive, "provisioning completed despite mail failure")
}

func TestRunUnknownDefaultRoleCompensates(t *testing.T) {
	store := employeetest.NewMemoryStore()
	idp := keycloaktest.NewFake() // catalog left empty
	saga := NewSaga(store, idp, &stubMailer{})

	_, err := saga.Run(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, idp.Calls, "Delete")
}
