package keycloak

import "context"

// User is the normalized shape of a remote account. The identity
// provider stays authoritative for every field here; nothing is cached.
type User struct {
	ID         string
	Username   string
	FirstName  string
	LastName   string
	Email      string
	Enabled    bool
	Attributes map[string][]string
}

// Role is a realm role as reported by the provider.
type Role struct {
	ID   string
	Name string
}

// Client is the typed gateway over the identity provider's admin API.
// It carries no business logic; it only normalizes the remote API's
// response and error shapes into this service's error taxonomy.
type Client interface {
	// Ping verifies admin connectivity to the provider.
	Ping(ctx context.Context) error

	// FindByUsername returns the account whose username matches exactly
	// (case-insensitive), or a not-found error.
	FindByUsername(ctx context.Context, username string) (*User, error)

	FindByID(ctx context.Context, userID string) (*User, error)

	FindAll(ctx context.Context) ([]User, error)

	// Create returns the new account's remote id.
	Create(ctx context.Context, u User) (string, error)
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, userID string) error

	SetPassword(ctx context.Context, userID, password string, temporary bool) error

	// EffectiveRealmRoles lists the realm roles the account holds after
	// composite resolution.
	EffectiveRealmRoles(ctx context.Context, userID string) ([]Role, error)
	AddRealmRoles(ctx context.Context, userID string, roles []Role) error
	RemoveRealmRoles(ctx context.Context, userID string, roles []Role) error
	RoleByName(ctx context.Context, name string) (*Role, error)
}
