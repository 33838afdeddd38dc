// Package keycloaktest provides a configurable in-memory fake of the
// identity provider gateway for component tests.
package keycloaktest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"identity-service/internal/apperr"
	"identity-service/internal/keycloak"
)

// Fake implements keycloak.Client against in-memory state. Every call is
// recorded in Calls (method names) so tests can assert on remote-call
// counts and ordering. Error fields inject failures per operation.
type Fake struct {
	mu sync.Mutex

	users     map[string]keycloak.User   // by id
	catalog   map[string]keycloak.Role   // realm role catalog, by name
	effective map[string][]keycloak.Role // by user id
	nextID    int

	Calls []string

	PingErr        error
	CreateErr      error
	UpdateErr      error
	DeleteErr      error
	SetPasswordErr error
	AddRolesErr    error
	RemoveRolesErr error
}

func NewFake() *Fake {
	return &Fake{
		users:     map[string]keycloak.User{},
		catalog:   map[string]keycloak.Role{},
		effective: map[string][]keycloak.Role{},
	}
}

// SeedRole adds a role to the realm catalog and returns it.
func (f *Fake) SeedRole(name string) keycloak.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	role := keycloak.Role{ID: "role-" + name, Name: name}
	f.catalog[name] = role
	return role
}

// SeedUser adds an account and returns its id.
func (f *Fake) SeedUser(u keycloak.User, roleNames ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.nextID++
		u.ID = fmt.Sprintf("kc-%d", f.nextID)
	}
	f.users[u.ID] = u
	for _, name := range roleNames {
		f.effective[u.ID] = append(f.effective[u.ID], keycloak.Role{ID: "role-" + name, Name: name})
	}
	return u.ID
}

// User returns the stored account for assertions.
func (f *Fake) User(id string) (keycloak.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	return u, ok
}

// RoleNames returns the effective role names of the account.
func (f *Fake) RoleNames(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.effective[id] {
		out = append(out, r.Name)
	}
	return out
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *Fake) Ping(ctx context.Context) error {
	f.record("Ping")
	return f.PingErr
}

func (f *Fake) FindByUsername(ctx context.Context, username string) (*keycloak.User, error) {
	f.record("FindByUsername")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user not found: " + username)
}

func (f *Fake) FindByID(ctx context.Context, userID string) (*keycloak.User, error) {
	f.record("FindByID")
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return &u, nil
}

func (f *Fake) FindAll(ctx context.Context) ([]keycloak.User, error) {
	f.record("FindAll")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]keycloak.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *Fake) Create(ctx context.Context, u keycloak.User) (string, error) {
	f.record("Create")
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = fmt.Sprintf("kc-%d", f.nextID)
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *Fake) Update(ctx context.Context, u keycloak.User) error {
	f.record("Update")
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return apperr.NotFound("user not found")
	}
	f.users[u.ID] = u
	return nil
}

func (f *Fake) Delete(ctx context.Context, userID string) error {
	f.record("Delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(f.users, userID)
	delete(f.effective, userID)
	return nil
}

func (f *Fake) SetPassword(ctx context.Context, userID, password string, temporary bool) error {
	f.record("SetPassword")
	if f.SetPasswordErr != nil {
		return f.SetPasswordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (f *Fake) EffectiveRealmRoles(ctx context.Context, userID string) ([]keycloak.Role, error) {
	f.record("EffectiveRealmRoles")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]keycloak.Role(nil), f.effective[userID]...), nil
}

func (f *Fake) AddRealmRoles(ctx context.Context, userID string, roles []keycloak.Role) error {
	f.record("AddRealmRoles")
	if f.AddRolesErr != nil {
		return f.AddRolesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.effective[userID] = append(f.effective[userID], roles...)
	return nil
}

func (f *Fake) RemoveRealmRoles(ctx context.Context, userID string, roles []keycloak.Role) error {
	f.record("RemoveRealmRoles")
	if f.RemoveRolesErr != nil {
		return f.RemoveRolesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	remove := map[string]bool{}
	for _, r := range roles {
		remove[r.Name] = true
	}
	var kept []keycloak.Role
	for _, r := range f.effective[userID] {
		if !remove[r.Name] {
			kept = append(kept, r)
		}
	}
	f.effective[userID] = kept
	return nil
}

func (f *Fake) RoleByName(ctx context.Context, name string) (*keycloak.Role, error) {
	f.record("RoleByName")
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.catalog[name]
	if !ok {
		return nil, apperr.NotFound("role not found: " + name)
	}
	return &role, nil
}
