package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
)

// unexported, collision-proof context key
type subjectContextKeyType struct{}

var subjectKey = subjectContextKeyType{}

// SubjectFromContext extracts the authenticated caller's identity
// provider user id (the token subject) from context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok
}

// ContextWithSubject attaches a subject outside of token verification,
// for handlers exercised without a live issuer.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// AuthMiddleware verifies bearer tokens issued by the realm and attaches
// the subject to the request context. Authorization decisions live in
// the components, not here.
type AuthMiddleware struct {
	verifier *oidc.IDTokenVerifier
}

// NewAuthMiddleware discovers the issuer's keys and builds a verifier
// for tokens minted to clientID.
func NewAuthMiddleware(ctx context.Context, issuer, clientID string) (*AuthMiddleware, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	return &AuthMiddleware{verifier: verifier}, nil
}

// RequireAuth rejects requests without a valid bearer token.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		token, err := a.verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid bearer token",
			})
			return
		}

		ctx := context.WithValue(c.Request.Context(), subjectKey, token.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
