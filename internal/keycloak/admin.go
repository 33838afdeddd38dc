package keycloak

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"

	"identity-service/internal/apperr"
)

// AdminClient implements Client against the Keycloak admin API using a
// confidential client and the client-credentials grant. The admin token
// is reused until shortly before it expires; identity and role state is
// never cached.
type AdminClient struct {
	gc           *gocloak.GoCloak
	realm        string
	clientID     string
	clientSecret string

	tokenMu    sync.Mutex
	token      string
	tokenUntil time.Time
}

func NewAdminClient(baseURL, realm, clientID, clientSecret string) *AdminClient {
	return &AdminClient{
		gc:           gocloak.NewClient(baseURL),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (c *AdminClient) adminToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenUntil) {
		return c.token, nil
	}

	jwt, err := c.gc.LoginClient(ctx, c.clientID, c.clientSecret, c.realm)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable,
			"could not reach identity provider admin API", err)
	}

	c.token = jwt.AccessToken
	// renew a little early so in-flight calls never carry a stale token
	c.tokenUntil = time.Now().Add(time.Duration(jwt.ExpiresIn-30) * time.Second)
	return c.token, nil
}

func (c *AdminClient) Ping(ctx context.Context) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	if _, err := c.gc.GetRealm(ctx, token, c.realm); err != nil {
		return apperr.Wrap(apperr.KindUnavailable,
			"identity provider admin connection failed", err)
	}
	return nil
}

func (c *AdminClient) FindByUsername(ctx context.Context, username string) (*User, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	users, err := c.gc.GetUsers(ctx, token, c.realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(username),
		Exact:    gocloak.BoolP(true),
	})
	if err != nil {
		return nil, classify(err, "user search failed")
	}

	for _, u := range users {
		if u.Username != nil && strings.EqualFold(*u.Username, username) {
			nu := normalizeUser(u)
			return &nu, nil
		}
	}
	return nil, apperr.NotFound("user not found: " + username)
}

func (c *AdminClient) FindByID(ctx context.Context, userID string) (*User, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	u, err := c.gc.GetUserByID(ctx, token, c.realm, userID)
	if err != nil {
		return nil, classify(err, "user lookup failed")
	}
	nu := normalizeUser(u)
	return &nu, nil
}

func (c *AdminClient) FindAll(ctx context.Context) ([]User, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	users, err := c.gc.GetUsers(ctx, token, c.realm, gocloak.GetUsersParams{})
	if err != nil {
		return nil, classify(err, "user listing failed")
	}

	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, normalizeUser(u))
	}
	return out, nil
}

func (c *AdminClient) Create(ctx context.Context, u User) (string, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return "", err
	}

	attrs := u.Attributes
	id, err := c.gc.CreateUser(ctx, token, c.realm, gocloak.User{
		Username:   gocloak.StringP(u.Username),
		FirstName:  gocloak.StringP(u.FirstName),
		LastName:   gocloak.StringP(u.LastName),
		Email:      gocloak.StringP(u.Email),
		Enabled:    gocloak.BoolP(u.Enabled),
		Attributes: &attrs,
	})
	if err != nil {
		return "", classify(err, "user creation rejected")
	}
	return id, nil
}

func (c *AdminClient) Update(ctx context.Context, u User) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}

	attrs := u.Attributes
	err = c.gc.UpdateUser(ctx, token, c.realm, gocloak.User{
		ID:         gocloak.StringP(u.ID),
		Username:   gocloak.StringP(u.Username),
		FirstName:  gocloak.StringP(u.FirstName),
		LastName:   gocloak.StringP(u.LastName),
		Email:      gocloak.StringP(u.Email),
		Enabled:    gocloak.BoolP(u.Enabled),
		Attributes: &attrs,
	})
	if err != nil {
		return classify(err, "user update rejected")
	}
	return nil
}

func (c *AdminClient) Delete(ctx context.Context, userID string) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	if err := c.gc.DeleteUser(ctx, token, c.realm, userID); err != nil {
		return classify(err, "user deletion rejected")
	}
	return nil
}

func (c *AdminClient) SetPassword(ctx context.Context, userID, password string, temporary bool) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	if err := c.gc.SetPassword(ctx, token, userID, c.realm, password, temporary); err != nil {
		return classify(err, "password reset rejected")
	}
	return nil
}

func (c *AdminClient) EffectiveRealmRoles(ctx context.Context, userID string) ([]Role, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := c.gc.GetCompositeRealmRolesByUserID(ctx, token, c.realm, userID)
	if err != nil {
		return nil, classify(err, "role listing failed")
	}

	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, Role{
			ID:   gocloak.PString(r.ID),
			Name: gocloak.PString(r.Name),
		})
	}
	return out, nil
}

func (c *AdminClient) AddRealmRoles(ctx context.Context, userID string, roles []Role) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	if err := c.gc.AddRealmRoleToUser(ctx, token, c.realm, userID, denormalizeRoles(roles)); err != nil {
		return classify(err, "role assignment rejected")
	}
	return nil
}

func (c *AdminClient) RemoveRealmRoles(ctx context.Context, userID string, roles []Role) error {
	token, err := c.adminToken(ctx)
	if err != nil {
		return err
	}
	if err := c.gc.DeleteRealmRoleFromUser(ctx, token, c.realm, userID, denormalizeRoles(roles)); err != nil {
		return classify(err, "role removal rejected")
	}
	return nil
}

func (c *AdminClient) RoleByName(ctx context.Context, name string) (*Role, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return nil, err
	}

	role, err := c.gc.GetRealmRole(ctx, token, c.realm, name)
	if err != nil {
		return nil, classify(err, "role lookup failed: "+name)
	}
	return &Role{ID: gocloak.PString(role.ID), Name: gocloak.PString(role.Name)}, nil
}

func normalizeUser(u *gocloak.User) User {
	nu := User{
		ID:        gocloak.PString(u.ID),
		Username:  gocloak.PString(u.Username),
		FirstName: gocloak.PString(u.FirstName),
		LastName:  gocloak.PString(u.LastName),
		Email:     gocloak.PString(u.Email),
	}
	if u.Enabled != nil {
		nu.Enabled = *u.Enabled
	}
	if u.Attributes != nil {
		nu.Attributes = *u.Attributes
	}
	return nu
}

func denormalizeRoles(roles []Role) []gocloak.Role {
	out := make([]gocloak.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, gocloak.Role{
			ID:   gocloak.StringP(r.ID),
			Name: gocloak.StringP(r.Name),
		})
	}
	return out
}

// classify maps the admin API's error shapes onto the service taxonomy.
// Transport-level failures count as provider-unavailable; HTTP-level
// rejections keep the status semantics, with the provider's message
// carried through when it parses.
func classify(err error, msg string) error {
	var apiErr *gocloak.APIError
	if !errors.As(err, &apiErr) {
		return apperr.Wrap(apperr.KindUnavailable, msg, err)
	}

	detail := apiErr.Message
	if detail != "" {
		msg = msg + ": " + detail
	}

	switch apiErr.Code {
	case 404:
		return apperr.Wrap(apperr.KindNotFound, msg, err)
	case 409:
		return apperr.Wrap(apperr.KindConflict, msg, err)
	case 401, 403:
		return apperr.Wrap(apperr.KindForbidden, msg, err)
	default:
		return apperr.Wrap(apperr.KindRejected, msg, err)
	}
}
