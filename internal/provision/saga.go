package provision

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"identity-service/internal/apperr"
	"identity-service/internal/employee"
	"identity-service/internal/keycloak"
	"identity-service/internal/logger"
	"identity-service/internal/notify"
)

// DefaultRole is assigned to every newly provisioned account.
const DefaultRole = "Employee"

const tempPasswordLength = 8

// Request carries the inputs for provisioning one employee.
type Request struct {
	EmployeeCode string
	FirstName    string
	LastName     string
	Email        string
	EmployeeType string
}

// Result is returned on success. NotificationSent is false when the
// welcome mail could not be delivered; provisioning itself still
// succeeded in that case.
type Result struct {
	KeycloakUserID    string
	TemporaryPassword string
	NotificationSent  bool
}

// Saga creates one employee across the record store and the identity
// provider without a distributed transaction: local reservation first,
// then remote creation, then the link back. A failure after the remote
// account exists triggers a best-effort remote delete; the local
// reservation is left inactive and unlinked.
type Saga struct {
	store  employee.Store
	idp    keycloak.Client
	mailer notify.Sender
}

func NewSaga(store employee.Store, idp keycloak.Client, mailer notify.Sender) *Saga {
	return &Saga{store: store, idp: idp, mailer: mailer}
}

// flow is the mutable state threaded through one saga run.
type flow struct {
	req      Request
	userID   string
	password string
	notified bool
}

type transition struct {
	to  State
	run func(ctx context.Context, f *flow) error
}

func (s *Saga) Run(ctx context.Context, req Request) (*Result, error) {
	if req.EmployeeType == "" {
		req.EmployeeType = employee.DefaultEmployeeType
	}

	f := &flow{req: req}
	state := StateInit

	transitions := []transition{
		{StateDbReserved, s.reserveRecord},
		{StateRemoteChecked, s.checkRemote},
		{StateRemoteCreated, s.createRemote},
		{StateRoleAssigned, s.assignDefaultRole},
		{StateCredentialSet, s.setTemporaryCredential},
		{StateDbLinked, s.linkRecord},
		{StateNotified, s.sendNotification},
	}

	for _, t := range transitions {
		if err := t.run(ctx, f); err != nil {
			logger.Error("provisioning failed", map[string]any{
				"employee_code": req.EmployeeCode,
				"state":         state.String(),
				"failed_step":   t.to.String(),
				"error":         err.Error(),
			})
			if f.userID != "" {
				s.compensate(ctx, f)
			}
			return nil, err
		}
		state = t.to
	}
	state = StateDone

	logger.Info("employee provisioned", map[string]any{
		"employee_code": req.EmployeeCode,
		"user_id":       f.userID,
		"notified":      f.notified,
		"state":         state.String(),
	})

	return &Result{
		KeycloakUserID:    f.userID,
		TemporaryPassword: f.password,
		NotificationSent:  f.notified,
	}, nil
}

// reserveRecord rejects duplicates among active records, then inserts an
// inactive, unlinked reservation. The storage-level unique constraints
// are the real serialization point for concurrent attempts.
func (s *Saga) reserveRecord(ctx context.Context, f *flow) error {
	if _, err := s.store.GetByEmail(ctx, f.req.Email); err == nil {
		return apperr.Conflict("employee already exists: " + f.req.Email)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	if _, err := s.store.GetByCode(ctx, f.req.EmployeeCode); err == nil {
		return apperr.Conflict("employee already exists: " + f.req.EmployeeCode)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	return s.store.Insert(ctx, employee.Record{
		EmployeeCode: f.req.EmployeeCode,
		FirstName:    f.req.FirstName,
		LastName:     f.req.LastName,
		Email:        f.req.Email,
		EmployeeType: f.req.EmployeeType,
		IsActive:     false,
	})
}

// checkRemote verifies admin connectivity and rejects username or email
// collisions on the provider side. Nothing remote has been created yet,
// so no compensation is needed for failures here.
func (s *Saga) checkRemote(ctx context.Context, f *flow) error {
	if err := s.idp.Ping(ctx); err != nil {
		return err
	}

	if _, err := s.idp.FindByUsername(ctx, f.req.EmployeeCode); err == nil {
		return apperr.Conflict("account already exists in identity provider: " + f.req.EmployeeCode)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	all, err := s.idp.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, f.req.Email) {
			return apperr.Conflict("account already exists in identity provider: " + f.req.Email)
		}
	}
	return nil
}

func (s *Saga) createRemote(ctx context.Context, f *flow) error {
	userID, err := s.idp.Create(ctx, keycloak.User{
		Username:  f.req.EmployeeCode,
		FirstName: f.req.FirstName,
		LastName:  f.req.LastName,
		Email:     f.req.Email,
		Enabled:   true,
		Attributes: map[string][]string{
			"employeeType": {f.req.EmployeeType},
			"source":       {"identity-service"},
		},
	})
	if err != nil {
		return err
	}
	f.userID = userID
	return nil
}

func (s *Saga) assignDefaultRole(ctx context.Context, f *flow) error {
	role, err := s.idp.RoleByName(ctx, DefaultRole)
	if err != nil {
		return err
	}
	return s.idp.AddRealmRoles(ctx, f.userID, []keycloak.Role{*role})
}

func (s *Saga) setTemporaryCredential(ctx context.Context, f *flow) error {
	f.password = tempPassword()
	return s.idp.SetPassword(ctx, f.userID, f.password, true)
}

func (s *Saga) linkRecord(ctx context.Context, f *flow) error {
	return s.store.Link(ctx, f.req.EmployeeCode, f.userID)
}

// sendNotification never fails the saga: identity and access matter more
// than guaranteed delivery of the welcome message.
func (s *Saga) sendNotification(ctx context.Context, f *flow) error {
	subject, body, err := notify.WelcomeEmail(f.req.FirstName, f.req.EmployeeCode, f.password)
	if err == nil {
		err = s.mailer.Send(f.req.Email, subject, body)
	}
	if err != nil {
		logger.Error("credential notification failed", map[string]any{
			"employee_code": f.req.EmployeeCode,
			"error":         err.Error(),
		})
		return nil
	}
	f.notified = true
	return nil
}

// compensate deletes the remote account best-effort. Its own failure is
// logged, never surfaced, so the original error stays visible.
func (s *Saga) compensate(ctx context.Context, f *flow) {
	if err := s.idp.Delete(ctx, f.userID); err != nil {
		logger.Error("compensation failed: remote account left behind", map[string]any{
			"employee_code": f.req.EmployeeCode,
			"user_id":       f.userID,
			"error":         err.Error(),
		})
		return
	}
	logger.Info("rolled back remote account", map[string]any{
		"employee_code": f.req.EmployeeCode,
		"user_id":       f.userID,
	})
}

func tempPassword() string {
	return uuid.NewString()[:tempPasswordLength]
}
